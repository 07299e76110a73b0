/*
Package transport delivers encoded log batches from a WebAssembly guest to a
remote sink.

Two transports are provided. Host sends batches to the Tarmac logging
capability with a waPC host call. HTTP posts batches to a collector URL through
the host's httpclient capability, for guests whose host does not run a log
sink itself.

A Transport returns two kinds of outcome: a non-empty message means the sink
processed the batch but reported a problem with its content, and an error means
the call itself did not complete.
*/
package transport
