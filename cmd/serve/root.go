package serve

import (
	"fmt"
	"strconv"
	"strings"

	cmdUtil "github.com/ValentinKolb/opexec/cmd/util"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/ValentinKolb/opexec/rpc/serializer"
	"github.com/ValentinKolb/opexec/rpc/server"
	"github.com/ValentinKolb/opexec/rpc/transport"
	"github.com/ValentinKolb/opexec/rpc/transport/http"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the opexec store server",
		Long:    `Start a transactional key-value store server. The configuration can be set via command line flags or environment variables. The format of the environment variables is OPEXEC_<flag> (e.g. OPEXEC_SESSION_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=lstore", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: lstore (in memory), bstore (bbolt file in the data dir)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory holding the files of bstore shards"))

	key = "session-timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("Seconds after which an idle transaction is aborted (0 disables the expiry)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	shards, err := parseShards(viper.GetString("shards"))
	if err != nil {
		return err
	}

	serveCmdConfig.Shards = shards
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.SessionTimeoutSecond = viper.GetInt64("session-timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// parseShards parses a list of the form "100=lstore,200=bstore"
func parseShards(config string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	seen := make(map[uint64]bool)

	for _, shardConfig := range strings.Split(config, ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}
		if seen[shardID] {
			return nil, fmt.Errorf("duplicate shard ID %d", shardID)
		}
		seen[shardID] = true

		shardType, err := common.ParseServerShardType(parts[1])
		if err != nil {
			return nil, err
		}

		shards = append(shards, common.ServerShard{ShardID: shardID, Type: shardType})
	}

	return shards, nil
}

// run starts the opexec server
func run(_ *cobra.Command, _ []string) error {
	s, err := serializer.ByName(viper.GetString("serializer"))
	if err != nil {
		return err
	}

	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	default:
		return fmt.Errorf("invalid transport %s (expected http)", viper.GetString("transport"))
	}

	return server.NewRPCServer(*serveCmdConfig, t, s).Serve()
}
