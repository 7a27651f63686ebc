package op

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/opexec/cmd/util"
	"github.com/ValentinKolb/opexec/lib/executor"
	"github.com/ValentinKolb/opexec/lib/store"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Load test the executor with concurrent batches on hot keys",
		Long: `Runs concurrent workers that submit batches against a small set of hot keys.
Use --strategies to compare how different strategies cope with the contention.`,
		RunE:    runBench,
		PreRunE: processBenchConfig,
	}
	benchKeyPrefix   = "__bench"
	benchWorkers     = 10
	benchBatches     = 100
	benchOpsPerBatch = 1
	benchKeySpread   = 1
	benchSkip        = make([]string, 0)
)

func init() {
	key := "workers"
	benchCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent workers"))
	key = "batches"
	benchCmd.Flags().Int(key, 100, util.WrapString("Number of batches each worker submits per scenario"))
	key = "ops-per-batch"
	benchCmd.Flags().Int(key, 1, util.WrapString("Number of operations in each batch"))
	key = "keys"
	benchCmd.Flags().Int(key, 1, util.WrapString("How many different logical keys to use (1 = one hot key)"))
	key = "skip"
	benchCmd.Flags().String(key, "", util.WrapString("Scenarios to skip (comma separated - e.g. append,mixed)"))
	key = "csv"
	benchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	benchWorkers = max(viper.GetInt("workers"), 1)
	benchBatches = max(viper.GetInt("batches"), 1)
	benchOpsPerBatch = max(viper.GetInt("ops-per-batch"), 1)
	benchKeySpread = max(viper.GetInt("keys"), 1)
	benchSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

// benchResult collects the measurements of one scenario
type benchResult struct {
	name      string
	latency   gometrics.Timer
	attempts  gometrics.Histogram
	conflicts gometrics.Counter
	failures  gometrics.Counter
	elapsed   time.Duration
}

func newBenchResult(name string) *benchResult {
	return &benchResult{
		name:      name,
		latency:   gometrics.NewTimer(),
		attempts:  gometrics.NewHistogram(gometrics.NewUniformSample(4096)),
		conflicts: gometrics.NewCounter(),
		failures:  gometrics.NewCounter(),
	}
}

// benchScenario fills one batch, i is the index of the batch within its worker
type benchScenario struct {
	name string
	fill func(b *executor.Batch, key func() string, i int) error
}

var benchScenarios = []benchScenario{
	{
		name: "increment",
		fill: func(b *executor.Batch, key func() string, _ int) error {
			return b.Increment(kind(), key(), 1)
		},
	},
	{
		name: "append",
		fill: func(b *executor.Batch, key func() string, i int) error {
			return b.Append(kind(), key(), "v"+strconv.Itoa(i), viper.GetString("counter-key"))
		},
	},
	{
		name: "mixed",
		fill: func(b *executor.Batch, key func() string, i int) error {
			if i%4 == 0 {
				_, err := b.ReadNumber(kind(), key())
				return err
			}
			return b.Increment(kind(), key(), 1)
		},
	},
}

func runBench(cmd *cobra.Command, _ []string) error {
	fmt.Println("Load testing tool for the opexec batch executor")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Println(util.GetExecutorConfig().String())
	fmt.Printf("Workers: %d, Batches: %d, Ops/Batch: %d, Keys: %d\n", benchWorkers, benchBatches, benchOpsPerBatch, benchKeySpread)
	fmt.Println()

	results := make([]*benchResult, 0, len(benchScenarios))
	for _, scenario := range benchScenarios {
		if shouldSkip(scenario.name) {
			fmt.Printf("%-12sskipped\n", scenario.name)
			continue
		}
		result, err := runScenario(cmd.Context(), scenario)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", scenario.name, err)
		}
		printBenchResult(result)
		results = append(results, result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeBenchCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}
	return nil
}

// runScenario runs all workers of a scenario and waits for them
func runScenario(ctx context.Context, scenario benchScenario) (*benchResult, error) {
	result := newBenchResult(scenario.name)
	keys := make([]string, benchKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", benchKeyPrefix, scenario.name, i)
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < benchWorkers; w++ {
		g.Go(func() error {
			key := func() string { return keys[rand.IntN(len(keys))] }
			for i := 0; i < benchBatches; i++ {
				b := exec.NewBatch()
				for j := 0; j < benchOpsPerBatch; j++ {
					if err := scenario.fill(b, key, i*benchOpsPerBatch+j); err != nil {
						return err
					}
				}

				batchStart := time.Now()
				report, err := exec.Run(ctx, b)
				result.latency.UpdateSince(batchStart)
				if report != nil {
					result.attempts.Update(int64(report.Attempts))
				}
				switch {
				case err == nil:
				case ctx.Err() != nil:
					return ctx.Err()
				case store.CodeOf(err) == store.RetCConflictAbort:
					result.conflicts.Inc(1)
				default:
					result.failures.Inc(1)
				}
			}
			return nil
		})
	}
	err := g.Wait()
	result.elapsed = time.Since(start)
	return result, err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(scenario string) bool {
	for _, skip := range benchSkip {
		if strings.TrimSpace(skip) == scenario {
			return true
		}
	}
	return false
}

// batchesPerSec returns the throughput of a scenario
func (r *benchResult) batchesPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.latency.Count()) / r.elapsed.Seconds()
}

// printBenchResult prints the result of a scenario in a formatted way
func printBenchResult(r *benchResult) {
	ps := r.latency.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-12s%.0f batches/sec\tmean %s\tp50 %s\tp95 %s\tp99 %s\tattempts %.2f (max %d)\tconflicts %d\tfailures %d\n",
		r.name,
		r.batchesPerSec(),
		time.Duration(r.latency.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		r.attempts.Mean(),
		r.attempts.Max(),
		r.conflicts.Count(),
		r.failures.Count(),
	)
}

// writeBenchCSV writes the scenario results to a CSV file
func writeBenchCSV(csvPath string, results []*benchResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Scenario", "BatchesPerSec", "MeanNs", "P50Ns", "P95Ns", "P99Ns",
		"MeanAttempts", "MaxAttempts", "Conflicts", "Failures",
		"Workers", "Batches", "OpsPerBatch", "Keys", "Strategies",
		"Endpoints", "ShardID", "Serializer", "Transport",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	config := util.GetClientConfig()
	for _, r := range results {
		ps := r.latency.Percentiles([]float64{0.5, 0.95, 0.99})
		row := []string{
			r.name,
			fmt.Sprintf("%.0f", r.batchesPerSec()),
			fmt.Sprintf("%.0f", r.latency.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			fmt.Sprintf("%.2f", r.attempts.Mean()),
			strconv.FormatInt(r.attempts.Max(), 10),
			strconv.FormatInt(r.conflicts.Count(), 10),
			strconv.FormatInt(r.failures.Count(), 10),
			strconv.Itoa(benchWorkers),
			strconv.Itoa(benchBatches),
			strconv.Itoa(benchOpsPerBatch),
			strconv.Itoa(benchKeySpread),
			viper.GetString("strategies"),
			strings.Join(config.Endpoints, ";"),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %v", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
