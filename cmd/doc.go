// Package cmd implements the command-line interface of opexec. It provides a
// hierarchical command structure for running the store server and for submitting
// batches of logical operations to it.
//
// The package is organized into several subpackages:
//
//   - op: Commands running logical operations through the batch executor (incr, append, read-list, bench, ...)
//   - serve: Commands for starting and configuring the store server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See opexec -help for a list of all commands.
package cmd
