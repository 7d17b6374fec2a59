package cart

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// WriterNotifier prints notifications as single lines.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify writes note as one "[level] message" line.
func (n *WriterNotifier) Notify(note types.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", note.Level, note.Message)
}

// LogNotifier records notifications in the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier logging to l.
func NewLogNotifier(l *zap.Logger) LogNotifier {
	return LogNotifier{logger: l}
}

// Notify logs note at info, or at warn for errors.
func (n LogNotifier) Notify(note types.Notification) {
	level := zap.InfoLevel
	if note.Level == types.NotifyError {
		level = zap.WarnLevel
	}
	n.logger.Check(level, "notification").Write(zap.String("level", string(note.Level)), zap.String("message", note.Message))
}

// Notifiers fans a notification out to several notifiers.
type Notifiers []types.Notifier

// Notify passes note to each notifier in order.
func (ns Notifiers) Notify(note types.Notification) {
	for _, n := range ns {
		n.Notify(note)
	}
}
