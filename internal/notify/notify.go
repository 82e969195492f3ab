// Package notify is the boundary to the external notification job system.
// The auth core hands off notification requests here and never waits for
// delivery; retries and failures are the job system's problem.
package notify

import (
	"context"

	"github.com/google/uuid"

	"accountd/internal/email"
)

// Kind identifies the notification template to deliver.
type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindResetPassword Kind = "reset-password"
)

// Notification is a request to deliver a templated message to a recipient.
type Notification struct {
	Kind      Kind
	Recipient email.Address
	Data      map[string]string
}

// Queue enqueues notifications for delivery by the external job system.
// Enqueue returns the id of the created job.
type Queue interface {
	Enqueue(ctx context.Context, n Notification) (uuid.UUID, error)
}
