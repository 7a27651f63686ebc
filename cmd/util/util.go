package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/opexec/lib/executor"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/ValentinKolb/opexec/rpc/serializer"
	"github.com/ValentinKolb/opexec/rpc/transport"
	"github.com/ValentinKolb/opexec/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. OPEXEC_TIMEOUT=15)
	EnvPrefix = "opexec"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads the .env files and makes viper read matching environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// --------------------------------------------------------------------------
// RPC client
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single request"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the opexec server. Multiple endpoints can be specified as a comma-separated list, shard n is served by endpoint n modulo the number of endpoints"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to try connecting to the server"))

	key = "shard"
	cmd.PersistentFlags().Int(key, 100, WrapString("ID of the shard to connect to"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("transport-endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}
	return &common.ClientConfig{
		Endpoints:     endpoints,
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("transport-retries"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.ByName(viper.GetString("serializer"))
}

// GetTransport creates the client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected http)", viper.GetString("transport"))
	}
}

// GetShardID retrieves the configured shard ID
func GetShardID() uint64 {
	return uint64(viper.GetInt("shard"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Executor
// --------------------------------------------------------------------------

// SetupExecutorFlags adds the flags configuring the batch executor to a command
func SetupExecutorFlags(cmd *cobra.Command) {
	defaults := executor.DefaultConfig()

	key := "strategies"
	cmd.PersistentFlags().String(key, "", WrapString("Strategy bindings in the form KIND:STRATEGY(params)|... (e.g. likes:APPEND_INCREMENT_BUCKETS_RANDOM(8)|ALL:TRADITIONAL). Kinds without a binding use APPEND_INCREMENT"))

	key = "retries"
	cmd.PersistentFlags().Int(key, defaults.MaxRetries, WrapString("How many times a batch is retried after a conflict"))

	key = "retry-delay"
	cmd.PersistentFlags().Duration(key, defaults.RetryDelay, WrapString("How long to wait before retrying a batch"))
}

// GetExecutorConfig reads the executor configuration from viper
func GetExecutorConfig() executor.Config {
	config := executor.DefaultConfig()
	config.MaxRetries = viper.GetInt("retries")
	config.RetryDelay = viper.GetDuration("retry-delay")
	return config
}
