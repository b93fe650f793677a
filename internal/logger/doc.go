// Package logger provides a thread-safe leveled logger with per-actor
// coloring.
//
// Every line carries a millisecond timestamp and the name of the acting
// goroutine (producer, consumer, worker, dispatcher...). When coloring is
// enabled each actor gets a stable ANSI color derived from a hash of its
// name, so interleaved output from concurrent actors stays readable.
// Coloring is purely cosmetic and never changes log content.
package logger
