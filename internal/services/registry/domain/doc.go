// Package domain holds the registry state machine.
//
// The registry maps hashed domain names to a single permanent owner and maps
// subdomains under an owned domain to a subgraph identifier plus a metadata
// pointer. Every accepted command produces exactly one event; rejected
// commands produce none and leave state untouched.
//
// The package is split the same way the write path is:
//
//   - Decide evaluates every guard for a command against the current state
//     and returns the event it would emit, or a named rejection.
//   - Fold applies an accepted event to state. Folding is the only mutation
//     path, so replaying a journal reproduces state exactly.
//
// Registry combines the two for in-process callers. Hosts that must persist
// events before they become visible call Decide and Apply separately.
package domain
