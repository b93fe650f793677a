// Package sim simulates client sessions against the shared bounded
// buffer.
//
// A Task is one session: a single publish followed by simulated latency.
// The Simulator submits a configured number of tasks to the worker pool
// at a fixed connect interval, generating fake payloads for each client.
package sim
