/*
Package metrics instruments the batching dispatcher through the Tarmac host
metrics capability.

A Recorder counts delivered batches, batch sizes, records dropped after the
dispatcher was disabled, sink rejections and transport failures. The host
implementation follows Prometheus-style ergonomics: every method is best-effort
and does not return errors. Marshal or host-call failures are swallowed so
instrumentation never affects log delivery.
*/
package metrics
