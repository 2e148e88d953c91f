package logging

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger implements Logger backed by uber-go/zap.
type zapLogger struct {
	mu     sync.Mutex
	logger *zap.Logger
	fields []Field
	debug  bool
}

// Option configures the zap-backed logger.
type Option func(*options)

type options struct {
	development bool
	level       *zapcore.Level
	outputPaths []string
}

// WithDevelopmentMode enables the console encoder and debug level.
func WithDevelopmentMode() Option {
	return func(o *options) { o.development = true }
}

// WithDebugLevel lowers the minimum level to debug.
func WithDebugLevel() Option {
	return func(o *options) {
		lvl := zapcore.DebugLevel
		o.level = &lvl
	}
}

// WithLevel sets an explicit minimum level.
func WithLevel(level Level) Option {
	return func(o *options) {
		var lvl zapcore.Level
		switch level {
		case DEBUG:
			lvl = zapcore.DebugLevel
		case WARN:
			lvl = zapcore.WarnLevel
		case ERROR:
			lvl = zapcore.ErrorLevel
		default:
			lvl = zapcore.InfoLevel
		}
		o.level = &lvl
	}
}

// WithOutputPaths sets the zap output paths.
func WithOutputPaths(paths ...string) Option {
	return func(o *options) { o.outputPaths = paths }
}

// NewLogger creates the default zap-backed logger.
func NewLogger(opts ...Option) Logger {
	o := &options{outputPaths: []string{"stdout"}}
	for _, opt := range opts {
		opt(o)
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if o.development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = o.outputPaths
	if o.level != nil {
		cfg.Level = zap.NewAtomicLevelAt(*o.level)
	}

	z, err := cfg.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return NewNop()
	}
	debug := o.level != nil && *o.level == zapcore.DebugLevel
	return &zapLogger{logger: z, debug: debug || o.development}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.write(zapcore.DebugLevel, msg, fields) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.write(zapcore.InfoLevel, msg, fields) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.write(zapcore.WarnLevel, msg, fields) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.write(zapcore.ErrorLevel, msg, fields) }

func (l *zapLogger) write(lvl zapcore.Level, msg string, fields []Field) {
	if ce := l.logger.Check(lvl, msg); ce != nil {
		ce.Write(l.convert(fields)...)
	}
}

// WithFields implements Logger.
func (l *zapLogger) WithFields(fields ...Field) Logger {
	child := &zapLogger{logger: l.logger, debug: l.debug}
	child.fields = make([]Field, 0, len(l.fields)+len(fields))
	child.fields = append(child.fields, l.fields...)
	child.fields = append(child.fields, fields...)
	return child
}

// SetOutput rebuilds the core against w; used by tests to capture output.
func (l *zapLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.AddSync(w),
		l.logger.Level(),
	)
	l.logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func (l *zapLogger) convert(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(l.fields)+len(fields))
	for _, f := range l.fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
