package client

// Notifier receives user-facing notifications from the controllers. The UI
// layer implements it with whatever toast mechanism it has; tests implement
// it with a recorder.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}
