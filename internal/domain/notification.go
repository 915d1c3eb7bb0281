package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity is the alert vocabulary shared with the frontend snackbar.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity validates a severity string from config or API input.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return Severity(s), nil
	}
	return "", fmt.Errorf("unknown severity %q (expected info, success, warning or error)", s)
}

// DefaultAutoHide matches the frontend component's 6000 ms default.
const DefaultAutoHide = 6 * time.Second

// NoAutoHide marks a sticky notification that stays until dismissed.
const NoAutoHide = time.Duration(-1)

// Notification is one severity-tagged message. AutoHide zero means the
// default duration applies; negative means sticky.
type Notification struct {
	ID        string        `json:"id"`
	Severity  Severity      `json:"severity"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Source    string        `json:"source,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	AutoHide  time.Duration `json:"-"`
}

// NewNotification builds a notification with a fresh id and timestamp.
func NewNotification(severity Severity, title, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// EffectiveAutoHide resolves the auto-hide rule: zero falls back to the
// default, negative disables it.
func (n Notification) EffectiveAutoHide() (time.Duration, bool) {
	switch {
	case n.AutoHide < 0:
		return 0, false
	case n.AutoHide == 0:
		return DefaultAutoHide, true
	default:
		return n.AutoHide, true
	}
}

// CloseReason tells subscribers why a notification closed.
type CloseReason string

const (
	// CloseTimeout means the auto-hide timer fired.
	CloseTimeout CloseReason = "timeout"
	// CloseDismissed means a user or caller dismissed it.
	CloseDismissed CloseReason = "dismissed"
)

// EventType is the lifecycle phase carried by a notification event.
type EventType string

const (
	EventOpened EventType = "opened"
	EventClosed EventType = "closed"
)

// NotificationEvent is what center subscribers receive.
type NotificationEvent struct {
	Type         EventType    `json:"type"`
	Notification Notification `json:"notification"`
	Reason       CloseReason  `json:"reason,omitempty"`
}
