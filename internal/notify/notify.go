// Package notify composes and delivers the messages sent when seats open up.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const report_notify_send = "notify.send"

var ErrNotify = errors.New("notify: send failed")

// Notifier delivers a plain text message to every recipient.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// WriterNotifier writes messages to an io.Writer instead of delivering them.
type WriterNotifier struct {
	mu *sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) WriterNotifier {
	return WriterNotifier{mu: &sync.Mutex{}, w: w}
}

func (n WriterNotifier) Send(ctx context.Context, recipients []string, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(
		n.w,
		"To: %s\nSubject: %s\n\n%s\n\n",
		strings.Join(recipients, ", "),
		subject,
		body,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}
	return nil
}
