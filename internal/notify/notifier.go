package notify

import (
	"subcatalog/internal/logger"
)

// Event is a subscription lifecycle change worth telling the admin about.
type Event string

const (
	EventCreated     Event = "created"
	EventUpdated     Event = "updated"
	EventActivated   Event = "activated"
	EventDeactivated Event = "deactivated"
)

// Notifier delivers lifecycle notifications. Delivery is fire-and-forget:
// callers log failures and never let them affect the triggering write.
type Notifier interface {
	Notify(event Event, recipient, subscriptionName string) error
}

// LogNotifier stands in when no SMTP server is configured, so local runs and
// tests still see the notification flow.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(event Event, recipient, subscriptionName string) error {
	logger.Info("subscription notification",
		"event", string(event),
		"recipient", recipient,
		"subscription", subscriptionName,
	)
	return nil
}
