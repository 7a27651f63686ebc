// Package rpc makes a transactional store reachable over the network. The executor talks
// to a remote store through the same ITxStore contract it uses for local stores.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstraction with an HTTP implementation.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The remote ITxStore. Each transaction is a session on the server,
//     every Exec call is one request.
//
//   - server: Hosts the shards (lstore or bstore) and keeps the table of open
//     transaction sessions, aborting the ones that stay idle for too long.
package rpc
