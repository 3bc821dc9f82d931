// Package notify forwards message bus warnings and errors to an optional
// external notification service URL (webhook, Slack, Telegram, etc.) via
// shoutrrr, the way the teacher repo's internal/notification push dispatcher
// forwards detection events. A no-op Forwarder is used when no URL is
// configured (spec §6 output.notifyurl is optional).
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"

	"github.com/piccolo2go/piccolo/internal/bus"
	"github.com/piccolo2go/piccolo/internal/logging"
)

// Forwarder relays bus warning/error messages to an external sink.
type Forwarder struct {
	url    string
	logger *slog.Logger
}

// New creates a Forwarder. An empty url yields a no-op forwarder.
func New(url string) *Forwarder {
	return &Forwarder{url: url, logger: logging.ForService("notify")}
}

// Enabled reports whether a notify URL is configured.
func (f *Forwarder) Enabled() bool { return f.url != "" }

// Send delivers one message through shoutrrr. No-op if disabled.
func (f *Forwarder) Send(message string) {
	if !f.Enabled() {
		return
	}
	if err := shoutrrr.Send(f.url, message); err != nil {
		f.logger.Warn("notification forward failed", "err", err)
	}
}

// Run drains bus messages tagged warning|/error| for listener id and
// forwards each to the external sink until ctx is cancelled. Intended to
// run on its own goroutine, one per configured Forwarder.
func (f *Forwarder) Run(ctx context.Context, b *bus.Bus, id bus.ListenerID) {
	if !f.Enabled() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msg, ok := b.GetMessage(id)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if !strings.HasPrefix(msg, "warning|") && !strings.HasPrefix(msg, "error|") {
			continue
		}
		f.Send(msg)
	}
}
