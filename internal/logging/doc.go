// Package logging builds the zap logger shared by every docmind command.
//
// A Logger tees to any of stdout, stderr, a file and the OpenTelemetry log
// bridge, redacts API keys, samples chatty levels and appends correlation
// fields (trace, request, query, document) taken from the context.
//
//	logger, err := logging.NewLogger(cfg.Logging, tel.LoggerProvider())
//	ctx = logging.WithQueryID(ctx, id)
//	logger.Info(ctx, "answer streamed", zap.Int("tokens", n))
//
// Library packages take a plain *zap.Logger (see Logger.Underlying) and add
// ContextFields themselves.
package logging
