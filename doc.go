/*
Package remotelog provides the shared types and runtime configuration for
shipping log records from WebAssembly guest code to a Tarmac host.

The package defines Level and Record, the values that flow from the logging
façade through the batching dispatcher to the remote sink, plus a RuntimeConfig
that is shared by the transport and metrics clients. DefaultNamespace is used
when a namespace is not explicitly provided and DefaultCategory names records
logged without a category.
*/
package remotelog
