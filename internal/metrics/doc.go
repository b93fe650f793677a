// Package metrics collects counters for buffer and pool activity.
//
// Counters are lock-free atomics; the depth high-water mark and session
// latency samples are guarded by a mutex. Snapshot returns a point-in-time
// view for reports and the live API.
package metrics
