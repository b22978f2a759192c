package errors

import (
	"github.com/sirupsen/logrus"
)

// LogError logs an error with its structured context on the given logger.
func LogError(logger *logrus.Logger, err error, message string, fields ...logrus.Fields) {
	entry := withErrorFields(logger, err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Error(message)
}

// LogWarn logs an error as a warning with its structured context.
func LogWarn(logger *logrus.Logger, err error, message string, fields ...logrus.Fields) {
	entry := withErrorFields(logger, err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Warn(message)
}

func withErrorFields(logger *logrus.Logger, err error) *logrus.Entry {
	entry := logger.WithError(err)
	if appErr, ok := err.(*AppError); ok {
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"retryable":  appErr.Retryable,
		})
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}
	return entry
}
