// Package common provides the data structures shared by the RPC client, the RPC server
// and the command line tools.
//
// Key Components:
//
//   - Message: Single structure for all requests and responses of the transaction protocol.
//     A client opens a session with Begin (the server answers with a transaction id), sends
//     any number of Exec rounds referencing that id and finishes with a committing Exec or an
//     Abort. Errors travel as a store.RetCode plus a message, so errors.Is keeps working on
//     the client side.
//
//   - ServerConfig / ClientConfig: Configuration of the store server (shards, data directory,
//     session timeout) and of the client (endpoints, timeouts, retries).
//
//   - Logger: A zap backed implementation of dragonboat's logger.ILogger, installed with
//     InitLoggers. All packages obtain their logger with logger.GetLogger(name).
package common
