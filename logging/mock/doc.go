/*
Package mock provides a recording implementation of logging.Handler.

Tests configure which records the handler accepts and inspect the Published
records afterwards, without wiring a dispatcher or a zap logger.
*/
package mock
