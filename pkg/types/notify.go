package types

// NotificationLevel classifies a user-facing notification.
type NotificationLevel string

// Notification levels.
const (
	NotifySuccess NotificationLevel = "success"
	NotifyInfo    NotificationLevel = "info"
	NotifyError   NotificationLevel = "error"
)

// Notification is a transient user-facing message, the CLI's version of a
// toast.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// Notifier delivers notifications to the user. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(n Notification)
}
