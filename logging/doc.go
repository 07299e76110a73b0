/*
Package logging is the application-facing façade for remotelog.

A Facade owns a registry of per-category Loggers and a list of Handlers. Leveled
calls (Trace, Debug, Info, Warn, Error, Fatal) take the message and optional
WithCategory and WithCause options; records that pass the category's level are
offered to every handler. A batch.Dispatcher is a Handler, as is ZapHandler,
which writes records to a zap logger for local output.

	d, _ := batch.New(batch.Config{MinLevel: batch.PresetWarn})
	f, _ := logging.New(logging.Config{
	  Level:    remotelog.LevelInfo,
	  Handlers: []logging.Handler{logging.NewZapHandler(zapLogger), d},
	})

	f.Warn("cache miss storm", logging.WithCategory("cache"))
	f.Error("checkout failed", logging.WithCause(err))

Fatal is logged at ERROR; the façade does not distinguish the two levels.
*/
package logging
