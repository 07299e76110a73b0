/*
Package batchtest provides deterministic stand-ins for the dispatcher's
scheduler and transport.

ManualScheduler never runs a task on its own: tests fire pending flushes with
Fire or move a fake clock with Advance. Transport records every batch it is
given and answers with scripted outcomes, optionally running a hook while the
batch is "in flight" so tests can publish records during a delivery.

	sched := batchtest.NewManualScheduler()
	tr := batchtest.NewTransport()
	d, _ := batch.New(batch.Config{Scheduler: sched, Transport: tr})

	d.Publish(rec)
	sched.Advance(batch.DefaultDelay)
	// tr.Batches() now holds one batch with rec
*/
package batchtest
