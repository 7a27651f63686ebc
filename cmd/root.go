package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/opexec/cmd/op"
	"github.com/ValentinKolb/opexec/cmd/serve"
	"github.com/ValentinKolb/opexec/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "opexec",
		Short: "batched operation executor for transactional key-value stores",
		Long: fmt.Sprintf(`opexec (v%s)

Executes batches of logical operations (counters, lists, reads) against an
optimistic transactional key-value store. Every operation kind can use its own
strategy to spread hot keys over buckets or to buffer writes in a write cache.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of opexec",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("opexec v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(op.OpCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
