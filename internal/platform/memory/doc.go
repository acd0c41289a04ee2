// Package memory provides in-process implementations of the store
// interfaces. Transactions run on a private copy of the data under a single
// lock and replace the shared copy only on commit, so a failed transaction
// leaves no partial writes behind. It backs the "memory" store driver and the
// service and API tests.
package memory
