package core

import "github.com/hupe1980/agentrelay/logging"

// scopedLogger is embedded by RunContext and ToolContext. Every entry it
// writes carries the scope attributes it was created with.
type scopedLogger struct {
	logger logging.Logger
}

func newScopedLogger(l logging.Logger, attrs ...any) *scopedLogger {
	if l == nil {
		return &scopedLogger{logger: logging.NoOpLogger{}}
	}
	if len(attrs) > 0 {
		l = logging.With(l, attrs...)
	}
	return &scopedLogger{logger: l}
}

// Logger returns the scoped logger.
func (s *scopedLogger) Logger() logging.Logger { return s.logger }

func (s *scopedLogger) LogDebug(msg string, args ...any) { s.logger.Debug(msg, args...) }

func (s *scopedLogger) LogInfo(msg string, args ...any) { s.logger.Info(msg, args...) }

func (s *scopedLogger) LogWarn(msg string, args ...any) { s.logger.Warn(msg, args...) }

func (s *scopedLogger) LogError(msg string, args ...any) { s.logger.Error(msg, args...) }
