package executor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config configures the retry behaviour and metrics of an executor.
type Config struct {
	// MaxRetries is the number of times a batch is retried after a conflict (0 = no retries)
	MaxRetries int
	// RetryDelay is the time to wait before a retry
	RetryDelay time.Duration
	// MetricsPrefix is the prefix of all metric names
	MetricsPrefix string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		RetryDelay:    10 * time.Millisecond,
		MetricsPrefix: "opexec",
	}
}

// String returns a formatted string representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	sb.WriteString("\nEXECUTOR\n")
	addField("Max Retries", strconv.Itoa(c.MaxRetries))
	addField("Retry Delay", c.RetryDelay.String())
	addField("Metrics Prefix", c.MetricsPrefix)

	return sb.String()
}
