package view

import (
	"sync"
	"time"
)

// Severity of a notification toast.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// DefaultNotificationTTL is how long a toast stays visible unless replaced.
const DefaultNotificationTTL = 5 * time.Second

// Notification is one transient user-facing message.
type Notification struct {
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// Notifier shows at most one toast at a time. A new notification replaces
// the current one immediately; otherwise the toast auto-dismisses after the
// TTL.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	seq     uint64
	current *Notification
	timer   *time.Timer
}

// NewNotifier builds a notifier; ttl <= 0 uses DefaultNotificationTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{ttl: ttl}
}

// Notify replaces the visible toast and arms its auto-dismiss timer.
func (n *Notifier) Notify(title, message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	seq := n.seq
	n.current = &Notification{
		Title:    title,
		Message:  message,
		Severity: severity,
		At:       time.Now(),
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.ttl, func() { n.dismiss(seq) })
}

// Success is shorthand for a success toast.
func (n *Notifier) Success(title, message string) {
	n.Notify(title, message, SeveritySuccess)
}

// Error is shorthand for an error toast.
func (n *Notifier) Error(title, message string) {
	n.Notify(title, message, SeverityError)
}

// Current returns the visible toast, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// dismiss clears the toast only when it has not been replaced meanwhile.
func (n *Notifier) dismiss(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq != seq {
		return
	}
	n.current = nil
	n.timer = nil
}
