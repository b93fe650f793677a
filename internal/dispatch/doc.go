// Package dispatch runs the dedicated consumer loop that drains the
// shared bounded buffer.
//
// The dispatcher is structurally independent of the worker pool: it runs
// on its own goroutine and must be started before producers are
// submitted, so at least one consumer always exists even when every pool
// worker blocks on a full buffer. Keeping it outside the pool is what
// rules out a pool-exhaustion deadlock.
package dispatch
