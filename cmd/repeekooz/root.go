package main

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaixinbaba/repeekooz/zk"
)

var rootCmd = &cobra.Command{
	Use:   "repeekooz",
	Short: "repeekooz - a command-line client for a ZooKeeper-compatible session",
	Long: `repeekooz is a thin command-line client built on the repeekooz
session library. It connects to a single session for the lifetime of each
invocation, the way a ZooKeeper shell would.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("server", "127.0.0.1:2181", "connect string: host:port[,host:port...][/chroot]")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "requested session timeout")
	rootCmd.PersistentFlags().String("config", "", "path to a config file (default $HOME/.repeekooz.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetEnvPrefix("REPEEKOOZ")
	viper.AutomaticEnv()

	cobra.OnInitialize(func() {
		configPath, _ := rootCmd.PersistentFlags().GetString("config")
		if configPath != "" {
			viper.SetConfigFile(configPath)
		} else if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".repeekooz")
			viper.SetConfigType("yaml")
		}
		// A missing config file is fine: flags and env vars still apply.
		_ = viper.ReadInConfig()
	})

	rootCmd.AddCommand(createCmd, getCmd, setCmd, deleteCmd, lsCmd, existsCmd)
}

// dialFromFlags opens a session using the resolved server/timeout/verbose
// settings (flag > env var > config file > default, per viper's precedence).
func dialFromFlags() (*zk.Conn, error) {
	logger := logrus.StandardLogger()
	if viper.GetBool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}
	metrics := zk.NewMetrics(prometheus.DefaultRegisterer)

	return zk.Connect(
		viper.GetString("server"),
		viper.GetDuration("timeout"),
		zk.WithLogger(logger),
		zk.WithMetrics(metrics),
	)
}

