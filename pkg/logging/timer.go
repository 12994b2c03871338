package logging

import "time"

// TimedOperation logs one command with its latency when it ends. The level
// follows the outcome: DEBUG on success, WARN for a rejection the caller can
// fix, ERROR otherwise.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}

// StartTimer starts timing msg. fields are attached to the final entry.
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{logger: logger, msg: msg, start: time.Now(), fields: fields}
}

func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t *TimedOperation) End(fields ...Field) time.Duration {
	return t.finish(DebugLevel, nil, fields)
}

func (t *TimedOperation) EndWarn(err error, fields ...Field) time.Duration {
	return t.finish(WarnLevel, err, fields)
}

func (t *TimedOperation) EndError(err error, fields ...Field) time.Duration {
	return t.finish(ErrorLevel, err, fields)
}

func (t *TimedOperation) finish(level Level, err error, extra []Field) time.Duration {
	elapsed := t.Elapsed()
	all := make([]Field, 0, len(t.fields)+len(extra)+2)
	all = append(all, t.fields...)
	all = append(all, extra...)
	if err != nil {
		all = append(all, Error(err))
	}
	all = append(all, Latency(elapsed))

	switch level {
	case WarnLevel:
		t.logger.Warn(t.msg, all...)
	case ErrorLevel:
		t.logger.Error(t.msg, all...)
	default:
		t.logger.Debug(t.msg, all...)
	}
	return elapsed
}
