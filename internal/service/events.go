package service

import "github.com/sirupsen/logrus"

// Event names emitted by the services. Subscribers refresh the views they
// own; payloads are advisory.
const (
	EventLoansChanged        = "loans.changed"
	EventTransactionsChanged = "transactions.changed"
	EventRemindersChanged    = "reminders.changed"
)

// Events is the surface the core uses to reach the UI and the OS notifier.
// Emit signals a data change; Alert delivers a user-facing notification.
// Both are best-effort and must not block for long.
type Events interface {
	Emit(event string, payload any)
	Alert(title, message string)
}

// LogEvents writes events and alerts to the log. It is the headless
// implementation used when no UI is attached.
type LogEvents struct {
	Log *logrus.Logger
}

func (e LogEvents) Emit(event string, payload any) {
	e.Log.WithField("event", event).Debug("emit")
}

func (e LogEvents) Alert(title, message string) {
	e.Log.WithFields(logrus.Fields{"title": title}).Info(message)
}
