// Command repeekooz is a thin CLI facade over the zk package: a handful of
// subcommands for exercising a session interactively, the way dfsctl wraps
// DittoFS's control-plane API. It depends on zk; zk never depends on it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
