package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
)

// Log logs the request's method and path at Info level and always returns
// Next, so it is meant to sit ahead of the handler that actually answers.
type Log struct {
	logger *logrus.Logger
}

func NewLog(logger *logrus.Logger) *Log {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Log{logger: logger}
}

func (l *Log) Handle(r *request.Request, w *response.Writer) handler.Action {
	l.logger.WithFields(logrus.Fields{
		"method": r.Method().String(),
		"path":   r.Path(),
		"host":   r.Host(),
	}).Info("request")
	return handler.Next()
}
