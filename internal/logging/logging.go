package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfg = zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		// stderr keeps stdout free for command output such as `modules list`.
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	registry = &levels{
		byName:   make(map[string]zap.AtomicLevel),
		fallback: zap.InfoLevel,
	}
)

// Leveler adjusts the level of named loggers at runtime.
type Leveler interface {
	SetLevel(name string, level zapcore.Level)
	GetLevel(name string) zapcore.Level
	// SetAll changes every existing logger and the level given to loggers
	// created afterwards.
	SetAll(level zapcore.Level)
}

type levels struct {
	mu       sync.RWMutex
	byName   map[string]zap.AtomicLevel
	fallback zapcore.Level
}

var _ Leveler = (*levels)(nil)

func GetLeveler() Leveler {
	return registry
}

// SetLevelString parses a level name ("debug", "info", ...) and applies it to
// every logger.
func SetLevelString(level string) error {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	registry.SetAll(l)
	return nil
}

func (r *levels) SetLevel(name string, level zapcore.Level) {
	r.atomic(name).SetLevel(level)
}

func (r *levels) GetLevel(name string) zapcore.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.byName[name]; ok {
		return l.Level()
	}
	return r.fallback
}

func (r *levels) SetAll(level zapcore.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallback = level
	for _, l := range r.byName {
		l.SetLevel(level)
	}
}

func (r *levels) atomic(name string) zap.AtomicLevel {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byName[name]
	if !ok {
		l = zap.NewAtomicLevelAt(r.fallback)
		r.byName[name] = l
	}
	return l
}

func New(name string) *zap.SugaredLogger {
	c := cfg
	c.Level = registry.atomic(name)
	return zap.Must(c.Build(zap.AddStacktrace(zapcore.PanicLevel))).Named(name).Sugar()
}
