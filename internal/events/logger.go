package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

type watermillLogger struct {
	logger *zap.Logger
	fields watermill.LogFields
}

// NewWatermillLogger adapts a zap logger to watermill's LoggerAdapter.
func NewWatermillLogger(logger *zap.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger, fields: watermill.LogFields{}}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error(msg, append(l.zapFields(fields), zap.Error(err))...)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info(msg, l.zapFields(fields)...)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, l.zapFields(fields)...)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, l.zapFields(fields)...)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	combined := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		combined[k] = v
	}
	for k, v := range fields {
		combined[k] = v
	}
	return &watermillLogger{logger: l.logger, fields: combined}
}

func (l *watermillLogger) zapFields(fields watermill.LogFields) []zap.Field {
	zf := make([]zap.Field, 0, len(l.fields)+len(fields))
	for k, v := range l.fields {
		zf = append(zf, zap.Any(k, v))
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}
