package op

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/ValentinKolb/opexec/lib/executor"
	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/store/lstore"
	"github.com/ValentinKolb/opexec/lib/strategy"
)

func TestShouldSkip(t *testing.T) {
	benchSkip = []string{"append", " mixed"}
	defer func() { benchSkip = nil }()

	tests := []struct {
		scenario string
		want     bool
	}{
		{"append", true},
		{"mixed", true},
		{"increment", false},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			if got := shouldSkip(tt.scenario); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.scenario, got, tt.want)
			}
		})
	}
}

// TestRunScenario runs the increment scenario against an in-memory store
func TestRunScenario(t *testing.T) {
	s := lstore.NewLocalStore()
	exec = executor.NewExecutor(s, strategy.NewTable(), executor.Config{
		MaxRetries:    100,
		RetryDelay:    time.Millisecond,
		MetricsPrefix: "opexec_bench_test",
	})
	benchWorkers, benchBatches, benchOpsPerBatch, benchKeySpread = 4, 5, 1, 1

	result, err := runScenario(context.Background(), benchScenarios[0])
	if err != nil {
		t.Fatalf("runScenario() returned error: %v", err)
	}
	if got := result.latency.Count(); got != 20 {
		t.Errorf("expected 20 measured batches, got %d", got)
	}
	if got := result.failures.Count(); got != 0 {
		t.Errorf("expected no failures, got %d", got)
	}

	value, found, err := store.ReadValue(context.Background(), s, "__bench-increment-0")
	if err != nil || !found {
		t.Fatalf("ReadValue() = found %v, err %v", found, err)
	}
	want := strconv.FormatInt(20-result.conflicts.Count(), 10)
	if string(value) != want {
		t.Errorf("expected counter %s, got %s", want, value)
	}
}
