// Package client implements store.ITxStore on top of the RPC layer, so the batch executor
// can run against a store served by `opexec serve`.
//
// Every transaction is a session on the server: Begin returns a session id, each Exec call
// is one round trip carrying all requests of a round, and the last round commits. Errors
// keep their store.RetCode across the wire, so errors.Is(err, store.ErrConflictAbort)
// works for remote conflicts exactly as for local ones.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Endpoints:     []string{"http://localhost:8080"},
//		TimeoutSecond: 5,
//		RetryCount:    3,
//	}
//
//	s, err := client.NewRPCStore(100, config, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//
//	exec := executor.NewExecutor(s, strategy.NewTable(), executor.DefaultConfig())
//
// Thread Safety:
//
//	The store is safe for concurrent use. A transaction returned by Begin must only be
//	used by one goroutine.
package client
