// Package journal wraps registry events in tamper-evident envelopes.
//
// Every envelope carries a content hash, the hash of its predecessor, a chain
// hash linking the two, and an HMAC signature over the chain hash. Verify
// walks an ordered journal and recomputes all of them.
package journal
