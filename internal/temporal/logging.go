package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalAdapter bridges the SDK's keyval logger onto zerolog so worker and
// client output lands in the same stream as the rest of the service.
type TemporalAdapter struct {
	logger zerolog.Logger
}

func NewTemporalAdapter(logger zerolog.Logger) log.Logger {
	return &TemporalAdapter{
		logger: logger.With().Str("component", "temporal").Logger(),
	}
}

// emit folds the SDK's flat keyval list into structured fields. Malformed
// pairs come from SDK internals and are kept visible rather than dropped.
func (a *TemporalAdapter) emit(level zerolog.Level, msg string, keyvals []interface{}) {
	event := a.logger.WithLevel(level)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		if i+1 < len(keyvals) {
			event = event.Interface(key, keyvals[i+1])
		} else {
			event = event.Str(key, "(no value)")
		}
	}
	event.Msg(msg)
}

func (a *TemporalAdapter) Debug(msg string, keyvals ...interface{}) {
	a.emit(zerolog.DebugLevel, msg, keyvals)
}

func (a *TemporalAdapter) Info(msg string, keyvals ...interface{}) {
	a.emit(zerolog.InfoLevel, msg, keyvals)
}

func (a *TemporalAdapter) Warn(msg string, keyvals ...interface{}) {
	a.emit(zerolog.WarnLevel, msg, keyvals)
}

func (a *TemporalAdapter) Error(msg string, keyvals ...interface{}) {
	a.emit(zerolog.ErrorLevel, msg, keyvals)
}
