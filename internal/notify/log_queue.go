package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogQueue is a Queue that logs notifications instead of delivering them.
// Useful for local development when no job system is running. Note that it
// logs recipient addresses and template data, so it is not meant for
// production use.
type LogQueue struct {
	logger *slog.Logger
}

// NewLogQueue creates a new LogQueue.
func NewLogQueue(logger *slog.Logger) *LogQueue {
	return &LogQueue{
		logger: logger,
	}
}

// Enqueue logs the notification and reports success.
func (q *LogQueue) Enqueue(_ context.Context, n Notification) (uuid.UUID, error) {
	jobID := uuid.New()
	q.logger.Info("enqueue notification",
		"jobID", jobID,
		"kind", n.Kind,
		"recipient", n.Recipient,
		"data", n.Data,
	)
	return jobID, nil
}
