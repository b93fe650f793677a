// Package buffer provides a bounded, thread-safe FIFO message queue
// shared by producers and consumers.
//
// The queue has a fixed capacity chosen at construction. Put blocks the
// caller while the queue is full and Take blocks while it is empty, so
// neither side ever busy-waits or drops messages. Both operations accept
// a context and return its error if cancelled mid-wait; cancellation can
// never leave the queue in an inconsistent state.
//
// # Basic Usage
//
//	buf, err := buffer.New(3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// producer
//	_ = buf.Put(ctx, "producer", "msg-1")
//
//	// consumer
//	msg, _ := buf.Take(ctx, "consumer")
//
// FIFO order is strict: the nth message taken is the nth message queued,
// across any number of concurrent producers and consumers.
package buffer
