package logging

import "github.com/rs/zerolog"

// ComponentLogger exposes a zerolog logger through the key/value
// Debug/Info/Error interface of dispatcher.Logger. Entries carry a
// component field.
type ComponentLogger struct {
	zl zerolog.Logger
}

// NewComponentLogger tags every entry of logger with component=name.
func NewComponentLogger(logger zerolog.Logger, name string) *ComponentLogger {
	return &ComponentLogger{zl: logger.With().Str("component", name).Logger()}
}

// NewDispatcherLogger is the component logger used by the command dispatcher.
func NewDispatcherLogger(logger zerolog.Logger) *ComponentLogger {
	return NewComponentLogger(logger, "dispatcher")
}

func (l *ComponentLogger) Debug(msg string, kv ...any) { l.write(l.zl.Debug(), msg, kv) }
func (l *ComponentLogger) Info(msg string, kv ...any)  { l.write(l.zl.Info(), msg, kv) }
func (l *ComponentLogger) Error(msg string, kv ...any) { l.write(l.zl.Error(), msg, kv) }

// write pairs up kv. Non-string keys and a trailing key are dropped.
func (l *ComponentLogger) write(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			ev = ev.Interface(key, kv[i+1])
		}
	}
	ev.Msg(msg)
}
