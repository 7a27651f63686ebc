package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/opexec/lib/bucket"
	"github.com/ValentinKolb/opexec/lib/coalesce"
	"github.com/ValentinKolb/opexec/lib/ops"
	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/strategy"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("executor")

// Executor runs batches against a transactional store. It holds no state between runs
// and can be used by many goroutines, each with its own batches.
type Executor struct {
	store    store.ITxStore
	table    *strategy.Table
	resolver *bucket.Resolver
	config   Config
	metrics  *execMetrics
}

// Option configures an executor.
type Option func(*Executor)

// WithResolver replaces the bucket resolver (e.g. to control random bucket choices).
func WithResolver(r *bucket.Resolver) Option {
	return func(e *Executor) {
		e.resolver = r
	}
}

// NewExecutor creates an executor. The strategy table is shared with the caller,
// rebinding it affects all operations enqueued afterwards.
func NewExecutor(s store.ITxStore, table *strategy.Table, config Config, opts ...Option) *Executor {
	e := &Executor{
		store:    s,
		table:    table,
		resolver: bucket.NewResolver(),
		config:   config,
		metrics:  newExecMetrics(config.MetricsPrefix),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewBatch creates an empty batch.
func (e *Executor) NewBatch() *Batch {
	return &Batch{
		table: e.table,
		probe: coalesce.New(e.resolver),
		exec:  e,
	}
}

// BindStrategy binds a strategy to an operation type.
func (e *Executor) BindStrategy(kind strategy.OpType, s strategy.IStrategy) {
	e.table.Bind(kind, s)
}

// Table returns the strategy table of the executor.
func (e *Executor) Table() *strategy.Table {
	return e.table
}

// --------------------------------------------------------------------------
// Run
// --------------------------------------------------------------------------

// Run executes all operations of the batch in one transaction. All phases of all operations
// are executed in lock-step, so the number of rounds equals the largest phase count of the
// batch and not the number of operations. The last round commits.
//
// If the transaction is aborted because of a conflict the batch is planned again (random
// buckets are chosen anew) and retried up to Config.MaxRetries times. Every other error is
// returned immediately. Either all operations of a batch are applied or none.
//
// Mutations are sent before reads and flushes. Reads observe the native mutations of the
// batch but not the writes of read-modify-write operations, which happen in a later round.
func (e *Executor) Run(ctx context.Context, b *Batch) (*Report, error) {
	report := newReport(b)
	if len(b.pending) == 0 {
		return report, nil
	}

	e.metrics.batches.Inc()
	defer e.metrics.duration.UpdateDuration(time.Now())

	for {
		report.Attempts++

		p, err := e.plan(b)
		if err != nil {
			e.metrics.failures.Inc()
			return report.fail(err)
		}
		report.setTargets(p.targets)

		rounds, err := e.execute(ctx, p.operations)
		report.Rounds += rounds
		e.metrics.rounds.Add(rounds)

		if err == nil {
			for _, finish := range p.finish {
				finish()
			}
			Logger.Debugf("batch of %d operations done (attempts %d, rounds %d)", len(b.pending), report.Attempts, report.Rounds)
			return report, nil
		}

		if !store.CodeOf(err).Retryable() {
			e.metrics.failures.Inc()
			Logger.Errorf("batch of %d operations failed: %v", len(b.pending), err)
			return report.fail(err)
		}

		e.metrics.conflicts.Inc()
		if report.Attempts > e.config.MaxRetries {
			e.metrics.failures.Inc()
			Logger.Warningf("batch of %d operations aborted due to a conflict, giving up after %d attempts", len(b.pending), report.Attempts)
			return report.fail(err)
		}

		Logger.Warningf("batch of %d operations aborted due to a conflict (attempt %d), retrying in %s", len(b.pending), report.Attempts, e.config.RetryDelay)
		e.metrics.retries.Inc()
		if err := sleep(ctx, e.config.RetryDelay); err != nil {
			e.metrics.failures.Inc()
			return report.fail(err)
		}
	}
}

// plan is the resolved form of a batch for one attempt.
type plan struct {
	operations []ops.IOperation
	targets    [][]string // physical keys per pending operation
	finish     []func()   // publish read results once the attempt succeeded
}

func (e *Executor) plan(b *Batch) (*plan, error) {
	p := &plan{targets: make([][]string, len(b.pending))}

	c := coalesce.New(e.resolver)
	for i, pd := range b.pending {
		if pd.access != accessMutation {
			continue
		}
		if err := c.Add(i, pd.mutation); err != nil {
			return nil, fmt.Errorf("%s: %w", pd.description, err)
		}
	}
	for _, entry := range c.Entries() {
		for _, source := range entry.Sources {
			p.targets[source] = append(p.targets[source], entry.Targets()...)
		}
		if op := entry.Operation(); op != nil {
			p.operations = append(p.operations, op)
		}
	}

	for i, pd := range b.pending {
		switch pd.access {
		case accessReadNumber:
			op := &ops.ReadNumberOp{Keys: bucket.Keys(pd.strategy, pd.key)}
			handle := pd.number
			p.add(i, op, op.Keys, func() {
				*handle = NumberResult{Value: op.Value, Found: op.Found}
			})
		case accessReadList:
			op := &ops.ReadListOp{
				DataKeys:  bucket.DataKeys(pd.strategy, pd.key),
				WriteKeys: bucket.WriteKeys(pd.strategy, pd.key),
				Markers:   usesMarkers(pd.strategy),
				Partial:   strategy.PartialRead(pd.strategy),
				Limit:     pd.limit,
			}
			handle := pd.list
			p.add(i, op, bucket.Keys(pd.strategy, pd.key), func() {
				*handle = ListResult{Values: op.Values, Total: op.Total}
			})
		case accessFlush:
			op := &ops.FlushWriteCacheOp{
				Key:       pd.key,
				WriteKeys: bucket.WriteKeys(pd.strategy, pd.key),
				Markers:   usesMarkers(pd.strategy),
			}
			targets := bucket.Keys(pd.strategy, pd.key)
			if pd.counterKey != "" {
				op.CounterKey = pd.counterKey
				op.CounterWriteKeys = bucket.WriteKeys(pd.strategy, pd.counterKey)
				targets = append(targets, bucket.Keys(pd.strategy, pd.counterKey)...)
			}
			p.add(i, op, targets, nil)
		}
	}
	return p, nil
}

func (p *plan) add(source int, op ops.IOperation, targets []string, finish func()) {
	p.operations = append(p.operations, op)
	p.targets[source] = targets
	if finish != nil {
		p.finish = append(p.finish, finish)
	}
}

// execute runs the operations in lock-step in a single transaction and returns the number of rounds.
func (e *Executor) execute(ctx context.Context, operations []ops.IOperation) (rounds int, err error) {
	maxPhases := 0
	for _, op := range operations {
		maxPhases = max(maxPhases, op.WorkPhases())
	}
	if maxPhases == 0 {
		return 0, nil
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Abort()
		}
	}()

	var results *store.ResultList
	for phase := 0; phase <= maxPhases; phase++ {
		requests := store.NewRequestList()
		cursor := 0
		for _, op := range operations {
			if phase > op.WorkPhases() {
				continue
			}
			consumed, err := op.DoPhase(phase, cursor, results, requests)
			if err != nil {
				return rounds, err
			}
			cursor += consumed
		}
		if cursor != results.Size() {
			return rounds, store.Errorf(store.RetCBackendFailure,
				"round %d returned %d results, but %d were consumed", phase-1, results.Size(), cursor)
		}
		if phase == maxPhases {
			break
		}

		commit := phase == maxPhases-1
		Logger.Debugf("round %d: %d requests of %d operations (commit=%t)", phase, requests.Size(), len(operations), commit)
		results, err = tx.Exec(ctx, requests, commit)
		rounds++
		if commit && store.CodeOf(err) == store.RetCInvalidOperation {
			// a request of the commit round failed, earlier rounds report this through the operations
			return rounds, store.Errorf(store.RetCBackendFailure, "round %d: %v", phase, err)
		}
		if err != nil {
			return rounds, err
		}
	}
	return rounds, nil
}

func usesMarkers(s strategy.IStrategy) bool {
	wc, ok := s.(strategy.WriteCache)
	return ok && wc.Mode == strategy.ModeReplicated
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
