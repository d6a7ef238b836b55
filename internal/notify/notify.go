// Package notify carries user-visible notifications ("toasts") from the form
// engine to whatever surface shows them.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Variant selects how a notification is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is one message for the user.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	At          time.Time `json:"at"`
}

// Info builds a default notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Error builds a destructive notification.
func Error(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Discard drops every notification.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(Notification) {}

// DefaultInboxSize bounds an Inbox that nobody drains.
const DefaultInboxSize = 50

// Inbox buffers notifications until they are drained. When full, the oldest
// entry is dropped.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	limit int
	log   *zap.Logger
	now   func() time.Time
}

// NewInbox returns an Inbox holding at most limit entries.
func NewInbox(limit int, log *zap.Logger) *Inbox {
	if limit <= 0 {
		limit = DefaultInboxSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Inbox{limit: limit, log: log, now: time.Now}
}

// Notify appends n, stamping it when At is zero.
func (i *Inbox) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = i.now().UTC()
	}
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	i.log.Info("notification", zap.String("title", n.Title), zap.String("variant", string(n.Variant)))
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
	if over := len(i.items) - i.limit; over > 0 {
		i.items = append([]Notification(nil), i.items[over:]...)
	}
}

// Drain returns and clears the buffered notifications.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
