package op

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/opexec/lib/executor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	writeCmd = &cobra.Command{
		Use:   "write [key] [value]",
		Short: "Overwrites the value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, func(b *executor.Batch) error {
				return b.Write(kind(), args[0], []byte(args[1]))
			})
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key] [delta]",
		Short: "Adds delta to a counter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be a number: %w", err)
			}
			return runBatch(cmd, func(b *executor.Batch) error {
				return b.Increment(kind(), args[0], delta)
			})
		},
	}
	appendCmd = &cobra.Command{
		Use:   "append [key] [value...]",
		Short: "Appends values to a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, func(b *executor.Batch) error {
				for _, value := range args[1:] {
					if err := b.Append(kind(), args[0], value, viper.GetString("counter-key")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key] [value...]",
		Short: "Removes values from a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, func(b *executor.Batch) error {
				for _, value := range args[1:] {
					if err := b.Remove(kind(), args[0], value, viper.GetString("counter-key")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	readNumberCmd = &cobra.Command{
		Use:   "read-number [key]",
		Short: "Reads a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result *executor.NumberResult
			err := runBatch(cmd, func(b *executor.Batch) (err error) {
				result, err = b.ReadNumber(kind(), args[0])
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%d\n", args[0], result.Found, result.Value)
			return nil
		},
	}
	readListCmd = &cobra.Command{
		Use:   "read-list [key]",
		Short: "Reads a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result *executor.ListResult
			err := runBatch(cmd, func(b *executor.Batch) (err error) {
				result, err = b.ReadList(kind(), args[0], viper.GetInt("limit"))
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, total=%d, values=%v\n", args[0], result.Total, result.Values)
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush [key]",
		Short: "Merges the write cache of a list into the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, func(b *executor.Batch) error {
				return b.FlushWriteCache(kind(), args[0], viper.GetString("counter-key"))
			})
		},
	}
)

// runBatch fills a new batch, runs it and prints the report
func runBatch(cmd *cobra.Command, fill func(b *executor.Batch) error) error {
	b := exec.NewBatch()
	if err := fill(b); err != nil {
		return err
	}

	report, err := exec.Run(cmd.Context(), b)
	if report != nil {
		fmt.Print(report.String())
	}
	return err
}
