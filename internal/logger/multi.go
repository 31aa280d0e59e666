package logger

import (
	"github.com/leoric-crown/textual-snapshots/internal/capture"
	"github.com/leoric-crown/textual-snapshots/internal/detection"
	"github.com/leoric-crown/textual-snapshots/internal/validation"
)

// MultiLogger forwards every call to each of its loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers. Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

func (ml *MultiLogger) Tracef(format string, args ...interface{}) {
	for _, l := range ml.loggers {
		l.Tracef(format, args...)
	}
}

func (ml *MultiLogger) Debugf(format string, args ...interface{}) {
	for _, l := range ml.loggers {
		l.Debugf(format, args...)
	}
}

func (ml *MultiLogger) Infof(format string, args ...interface{}) {
	for _, l := range ml.loggers {
		l.Infof(format, args...)
	}
}

func (ml *MultiLogger) Warnf(format string, args ...interface{}) {
	for _, l := range ml.loggers {
		l.Warnf(format, args...)
	}
}

func (ml *MultiLogger) Errorf(format string, args ...interface{}) {
	for _, l := range ml.loggers {
		l.Errorf(format, args...)
	}
}

func (ml *MultiLogger) LogCaptureResult(result capture.Result) {
	for _, l := range ml.loggers {
		l.LogCaptureResult(result)
	}
}

func (ml *MultiLogger) LogDetection(path string, result detection.Result) {
	for _, l := range ml.loggers {
		l.LogDetection(path, result)
	}
}

func (ml *MultiLogger) LogVerdict(path string, verdict validation.Verdict) {
	for _, l := range ml.loggers {
		l.LogVerdict(path, verdict)
	}
}

func (ml *MultiLogger) LogSummary(summary Summary) {
	for _, l := range ml.loggers {
		l.LogSummary(summary)
	}
}
