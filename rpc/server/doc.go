// Package server hosts transactional stores and serves their transactions over an RPC
// transport.
//
// A server runs any number of shards. Each shard is backed by its own store, either the
// in-memory lstore or the bbolt backed bstore (one file per shard in the data directory).
//
// Key Components:
//
//   - RPCServer: Creates the shards from a common.ServerConfig, decodes incoming messages
//     with the configured serializer and dispatches them to the adapter of the shard.
//
//   - IRPCServerAdapter / txStoreServerAdapterImpl: Translates Begin, Exec and Abort messages
//     into calls on the store. Open transactions are kept in a session table keyed by a
//     random UUID; a session ends with its committing round, with a failed round or with
//     an explicit Abort.
//
//   - sessionTable: Concurrent map of open sessions. Sessions idle for longer than the
//     configured timeout are aborted by a janitor goroutine, so crashed clients cannot
//     leak transactions. A round for an unknown or expired session is answered with
//     ConflictAbort, which makes the batch executor start a fresh attempt.
//
// Metrics:
//
//	opexec_rpc_requests_total{type="..."}, opexec_rpc_sessions_opened_total and
//	opexec_rpc_sessions_expired_total are registered with VictoriaMetrics and served by
//	the HTTP transport on /metrics.
package server
