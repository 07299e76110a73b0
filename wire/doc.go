/*
Package wire converts batches of remotelog records to and from the bytes that
travel between a guest and the remote sink.

Batches are OpenTelemetry logs (pdata plog) encoded as protobuf or JSON, so any
OTLP aware tool can read a captured payload. Results are Tarmac sdk.Status
messages: 200 acknowledges a batch, 206 carries the sink's first per-record
error, and every other status is reported as a host error.
*/
package wire
