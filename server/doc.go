/*
Package server is the receiving end of remotelog: it decodes shipped batches and
writes every record to a zap logger.

A Server can be registered as the waPC host handler for the logging capability
(HandleBatch) or mounted as an HTTP ingest endpoint (HTTPHandler). Both answer
with an encoded sdk Status: 200 when every record was logged, 206 carrying the
first per-record failure otherwise, and 400 for payloads that cannot be decoded.
*/
package server
