package chgo

// Logger is the minimal sink the client reports schema-drift warnings to;
// connection-lifecycle and retry events are not reported. Callers bring their own implementation (zerolog, zap,
// the standard library's slog, or a test spy); the default is a no-op.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Warnf(string, ...any)  {}
