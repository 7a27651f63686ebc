// Package transport defines the interfaces for moving serialized messages between the RPC
// client and the RPC server.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks. Requests are
//     addressed to a shard, the handler resolves the shard itself.
//
// The only implementation shipped is HTTP (package transport/http). Tests use an
// in-process transport that calls the handler directly.
package transport
