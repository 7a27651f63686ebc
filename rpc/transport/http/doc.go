// Package http implements the RPC transport over HTTP.
//
// Every request is a POST to /{shardId} carrying one serialized message, the response
// body is the serialized reply. The server also exposes the process metrics in the
// Prometheus text format on GET /metrics.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. A shard is always routed to
//     the endpoint shardId % len(endpoints), so every round of a transaction reaches the
//     server holding its session. Requests are only repeated after dial errors.
//
//   - httpServerTransport: Implements IRPCServerTransport on net/http. With log level
//     debug every request is logged with its status and duration.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use after Connect returned.
package http
