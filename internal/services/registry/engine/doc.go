// Package engine hosts the registry state machine behind a single writer.
//
// One actor goroutine owns the in-memory Registry. Each command is decided
// against current state, persisted with its projections in one store
// transaction, folded into memory, and only then published to watchers. A
// failed write leaves memory untouched. Start rebuilds memory by replaying
// and verifying the journal.
package engine
