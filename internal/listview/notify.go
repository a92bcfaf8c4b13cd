package listview

import "sync"

// Level is the severity of a Notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// String returns a short label for the level.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a transient, user-facing message (a toast).
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications emitted by a Controller. Implementations
// may be called from any goroutine.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}

// Recorder is a Notifier that buffers notifications until drained.
// Renderers that poll (the TUI) drain it after each async operation.
type Recorder struct {
	mu    sync.Mutex
	queue []Notification
}

// Notify appends n to the queue.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.queue = append(r.queue, n)
	r.mu.Unlock()
}

// Drain returns and clears the buffered notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.queue
	r.queue = nil
	return out
}
