package notify

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// EmailConfig is the SMTP connection for admin notifications.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier sends lifecycle notifications over SMTP.
type EmailNotifier struct {
	cfg EmailConfig
	now func() time.Time
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, now: time.Now}
}

func (n *EmailNotifier) Notify(event Event, recipient, subscriptionName string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subjectFor(event))
	m.SetBody("text/plain", BuildBody(event, subscriptionName, n.now()))

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	return d.DialAndSend(m)
}

func subjectFor(event Event) string {
	switch event {
	case EventCreated:
		return "New subscription created"
	case EventUpdated:
		return "Subscription updated"
	case EventActivated:
		return "Subscription activated"
	case EventDeactivated:
		return "Subscription deactivated"
	default:
		return "Subscription notification"
	}
}

// BuildBody renders the plain-text notification body for an event.
func BuildBody(event Event, subscriptionName string, at time.Time) string {
	stamp := at.Format("02.01.2006 15:04")

	var action, followUp string
	switch event {
	case EventCreated:
		action = "A new subscription has been created"
		followUp = "You can view the details in the admin panel."
	case EventUpdated:
		action = "Subscription information has been updated"
		followUp = "You can view the changes in the admin panel."
	case EventActivated:
		action = "Subscription has been activated"
		followUp = "The subscription is now available to users."
	case EventDeactivated:
		action = "Subscription has been deactivated"
		followUp = "The subscription is no longer available to users."
	default:
		action = "Subscription event"
		followUp = ""
	}

	return fmt.Sprintf(
		"Dear Admin,\n\n%s:\n\nSubscription name: %s\nDate: %s\n\n%s\n\nBest regards,\nSubscription Catalog",
		action, subscriptionName, stamp, followUp,
	)
}
