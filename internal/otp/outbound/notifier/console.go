package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
)

// Console writes rendered messages to a writer. It is a development sink and
// accepts every contact kind.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole writes to stdout.
func NewConsole(entity.NotifierSetting) (Notifier, error) {
	return NewConsoleWriter(os.Stdout), nil
}

func NewConsoleWriter(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Name() string { return NameConsole }

func (c *Console) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.w, "[passcode] to=%s kind=%s purpose=%s subject=%q body=%q\n",
		msg.Contact, msg.Kind, msg.Purpose, msg.Subject, msg.Body)
	return err
}

// unconfiguredNotifier stands in for a notifier whose credentials are missing.
type unconfiguredNotifier struct {
	name string
}

func unconfigured(name string) Notifier {
	return unconfiguredNotifier{name: name}
}

func (u unconfiguredNotifier) Name() string { return u.name }

func (u unconfiguredNotifier) Send(context.Context, Message) error {
	return ErrNotConfigured
}
