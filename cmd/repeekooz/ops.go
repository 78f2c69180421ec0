package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kaixinbaba/repeekooz/zk"
)

var createCmd = &cobra.Command{
	Use:   "create <path> [data]",
	Short: "Create a node",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialFromFlags()
		if err != nil {
			return err
		}
		defer conn.Close()

		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		}
		sequential, _ := cmd.Flags().GetBool("sequential")
		ephemeral, _ := cmd.Flags().GetBool("ephemeral")
		mode := createModeFor(ephemeral, sequential)

		path, err := conn.Create(args[0], data, zk.WorldACL(zk.PermAll), mode)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func createModeFor(ephemeral, sequential bool) zk.CreateMode {
	switch {
	case ephemeral && sequential:
		return zk.ModeEphemeralSequential
	case ephemeral:
		return zk.ModeEphemeral
	case sequential:
		return zk.ModePersistentSequential
	default:
		return zk.ModePersistent
	}
}

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Print a node's data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialFromFlags()
		if err != nil {
			return err
		}
		defer conn.Close()

		data, stat, err := conn.GetData(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", data)
		if verbose, _ := cmd.Flags().GetBool("stat"); verbose {
			fmt.Printf("version=%d czxid=%d mzxid=%d\n", stat.Version, stat.Czxid, stat.Mzxid)
		}
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <path> <data>",
	Short: "Overwrite a node's data",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialFromFlags()
		if err != nil {
			return err
		}
		defer conn.Close()

		version, _ := cmd.Flags().GetInt32("version")
		stat, err := conn.SetData(args[0], []byte(args[1]), version)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d\n", stat.Version)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Delete a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialFromFlags()
		if err != nil {
			return err
		}
		defer conn.Close()

		version, _ := cmd.Flags().GetInt32("version")
		return conn.Delete(args[0], version)
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List a node's children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialFromFlags()
		if err != nil {
			return err
		}
		defer conn.Close()

		children, err := conn.GetChildren(args[0])
		if err != nil {
			return err
		}
		for _, c := range children {
			fmt.Println(c)
		}
		return nil
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists <path>",
	Short: "Report whether a node exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialFromFlags()
		if err != nil {
			return err
		}
		defer conn.Close()

		exists, _, err := conn.Exists(args[0])
		if err != nil {
			return err
		}
		fmt.Println(strconv.FormatBool(exists))
		return nil
	},
}

func init() {
	createCmd.Flags().Bool("ephemeral", false, "create an ephemeral node")
	createCmd.Flags().Bool("sequential", false, "append a sequence number to the path")
	getCmd.Flags().Bool("stat", false, "also print the node's version, czxid and mzxid")
	setCmd.Flags().Int32("version", -1, "expected version (-1 matches any)")
	deleteCmd.Flags().Int32("version", -1, "expected version (-1 matches any)")
}
