package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes messages to a logger instead of delivering them.
// It is used when no push transport is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, token string, msg Message) error {
	s.logger.Info("notification",
		zap.String("token", redact(token)),
		zap.String("kind", string(msg.Kind)),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body))
	return nil
}
