/*
Package executor batches logical operations and executes them against a transactional store
with as few round trips as possible.

Operations are queued on a Batch:

	exec := executor.NewExecutor(s, table, executor.DefaultConfig())
	batch := exec.NewBatch()
	_ = batch.Append("page-list", "pages", "Main_Page", "pages_count")
	_ = batch.Increment("edit-count", "edits", 1)
	count, _ := batch.ReadNumber("page-list", "pages_count")
	report, err := exec.Run(ctx, batch)

Every call resolves the strategy bound to its operation type when it is made and is checked
against the operations already queued; rejected calls return an error and are not queued.

Run plans the batch (bucket resolution and coalescing, see package coalesce), turns it into
phased operations (see package ops) and drives them in lock-step inside one transaction: the
requests of phase p of all operations form round p. The last round commits. A batch of any
number of read-modify-write increments therefore needs exactly two rounds.

A conflict aborts the whole attempt. The batch is then planned again, so random buckets are
re-drawn, and retried after Config.RetryDelay, at most Config.MaxRetries times. Every other
failure ends the run immediately. There is no partial success: the report carries the same
error for every operation.

Metrics (VictoriaMetrics, prefix from Config.MetricsPrefix):

	<prefix>_batches_total, <prefix>_rounds_total, <prefix>_conflicts_total,
	<prefix>_retries_total, <prefix>_failed_batches_total, <prefix>_batch_duration_seconds
*/
package executor
