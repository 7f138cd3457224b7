package core

import (
	"io"
	"time"
)

// UI defines the interface for user interaction and output.
type UI interface {
	// Section prints a section header.
	Section(title string)
	// Title prints a main title.
	Title(title string)
	// Success prints a success message.
	Success(msg string)
	// Info prints an informational message.
	Info(msg string)
	// Warning prints a warning message.
	Warning(msg string)
	// Error prints an error message.
	Error(msg string)
	// Printf prints a formatted message to standard output.
	Printf(format string, args ...interface{})
	// Println prints a line to standard output.
	Println(args ...interface{})
	// WithWriter returns a new UI instance writing to the specified writer.
	WithWriter(w io.Writer) UI
}

// NotificationLevel is the severity of a user-visible notification.
type NotificationLevel string

const (
	NotifyError   NotificationLevel = "error"
	NotifyWarning NotificationLevel = "warning"
	NotifySuccess NotificationLevel = "success"
)

// Notification is a toast-style message shown to the user.
type Notification struct {
	Level    NotificationLevel `json:"level"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Kind     Kind              `json:"integration"`
	Identity string            `json:"externalId"`
	At       time.Time         `json:"at"`
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// MultiNotifier forwards every notification to all of its members.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
