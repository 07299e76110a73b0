/*
Package batch implements the dispatcher that ships log records to a remote sink
in coalesced batches.

Accepted records are queued in publish order. The first record queued while the
dispatcher is idle schedules a flush after a short coalescing delay; the flush
takes the whole queue as one batch and hands it to the transport. Records
published while a batch is in flight wait for the next cycle, which is only
started once the outcome of the current delivery is known, so there is never
more than one delivery outstanding.

A sink that answers with an error message does not stop the dispatcher. A
delivery that fails outright disables it for good: later records are dropped
and no further calls are made. Logging must never fail the application, so none
of this is reported to callers of Publish; it goes to the dispatcher's own zap
logger and metrics recorder instead.

	d, err := batch.New(batch.Config{MinLevel: batch.PresetWarn})
	if err != nil {
	  return err
	}
	d.Publish(remotelog.NewRecord(remotelog.LevelError, "checkout", "payment declined", nil))
*/
package batch
