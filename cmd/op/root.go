package op

import (
	"fmt"

	"github.com/ValentinKolb/opexec/cmd/util"
	"github.com/ValentinKolb/opexec/lib/executor"
	"github.com/ValentinKolb/opexec/lib/strategy"
	"github.com/ValentinKolb/opexec/rpc/client"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	exec *executor.Executor

	// OpCommands represents the command group running logical operations against a server
	OpCommands = &cobra.Command{
		Use:               "op",
		Short:             "Run logical operations through the batch executor",
		Long:              `Run logical operations (increments, list appends and removals, reads) against an opexec server. Every command runs as one batch with the configured strategies and retry settings.`,
		PersistentPreRunE: setupExecutor,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupRPCClientFlags(OpCommands)
	util.SetupExecutorFlags(OpCommands)

	key := "kind"
	OpCommands.PersistentFlags().String(key, "default", util.WrapString("Operation kind used to look up the strategy"))

	key = "counter-key"
	OpCommands.PersistentFlags().String(key, "", util.WrapString("Counter key kept in sync with list appends and removals (optional)"))

	key = "log-level"
	OpCommands.PersistentFlags().String(key, "warn", util.WrapString("Level at which logs will be output (debug, info, warn, error)"))

	key = "limit"
	OpCommands.PersistentFlags().Int(key, 0, util.WrapString("Maximum number of list elements to read (0 = all, only used by partial read strategies)"))

	OpCommands.AddCommand(writeCmd)
	OpCommands.AddCommand(incrCmd)
	OpCommands.AddCommand(appendCmd)
	OpCommands.AddCommand(removeCmd)
	OpCommands.AddCommand(readNumberCmd)
	OpCommands.AddCommand(readListCmd)
	OpCommands.AddCommand(flushCmd)
	OpCommands.AddCommand(benchCmd)
}

// setupExecutor connects to the server and creates the executor
func setupExecutor(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcStore, err := client.NewRPCStore(util.GetShardID(), *util.GetClientConfig(), t, s)
	if err != nil {
		return err
	}

	table := strategy.NewTable()
	if config := viper.GetString("strategies"); config != "" {
		if err := table.Apply(config); err != nil {
			return fmt.Errorf("invalid strategies: %w", err)
		}
	}

	exec = executor.NewExecutor(rpcStore, table, util.GetExecutorConfig())
	return nil
}

// kind returns the operation kind of the command
func kind() strategy.OpType {
	return strategy.OpType(viper.GetString("kind"))
}
