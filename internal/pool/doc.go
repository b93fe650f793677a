// Package pool provides a fixed-size worker pool with an orderly,
// bounded-time shutdown protocol.
//
// The pool moves through three states:
//
//	Running -> Draining -> Terminated
//
// Submit is accepted only while Running and returns ErrPoolClosed
// afterwards. Shutdown stops intake and lets already-accepted tasks
// finish. AwaitTermination bounds the wait; if it times out the caller
// invokes Abandon, which cancels the context passed to every task so
// blocked tasks return without corrupting shared state.
//
// # Basic Usage
//
//	p, err := pool.New(5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p.Start(ctx)
//
//	_ = p.Submit(func(ctx context.Context) {
//	    // do work, watch ctx
//	})
//
//	p.Shutdown()
//	if !p.AwaitTermination(30 * time.Second) {
//	    p.Abandon()
//	}
//
// At most Workers tasks run concurrently. Tasks start in roughly
// submission order; completion order is unconstrained.
package pool
