package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sender is one delivery channel for admin notifications.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
	Name() string
}

// Notifier fans events out to every configured sender. Delivery is
// fire-and-forget: failures are logged and never surface to the
// operation that produced the event.
type Notifier struct {
	senders []Sender
	log     zerolog.Logger
	timeout time.Duration
}

func NewNotifier(senders []Sender, log zerolog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		log:     log.With().Str("component", "notifier").Logger(),
		timeout: 10 * time.Second,
	}
}

// Dispatch delivers all events to all senders.
func (n *Notifier) Dispatch(ctx context.Context, events []Event) {
	if len(n.senders) == 0 || len(events) == 0 {
		return
	}
	for _, e := range events {
		subject, body := e.Subject(), e.Body()
		for _, s := range n.senders {
			sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
			err := s.Send(sendCtx, subject, body)
			cancel()
			if err != nil {
				n.log.Error().Err(err).
					Str("sender", s.Name()).
					Str("event", string(e.Type)).
					Str("user", e.Username).
					Msg("notification failed")
				continue
			}
			n.log.Debug().
				Str("sender", s.Name()).
				Str("event", string(e.Type)).
				Str("user", e.Username).
				Msg("notification sent")
		}
	}
}
