package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emberkv/ember/cmd/kv"
	"github.com/emberkv/ember/cmd/serve"
)

const Version = "1.0.0"

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ember",
		Short: "in-memory, sharded key-value store",
		Long: fmt.Sprintf(`ember (v%s)

An in-memory, sharded key-value store speaking a line-oriented text
protocol over TCP: bounded capacity with LRU eviction, absolute-time TTL
expiration, and point-in-time snapshots for persistence.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ember",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ember v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
