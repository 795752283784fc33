package mail

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/squeezy/pkg/idx"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("mail: no recipient")

// Message is a single outgoing mail. HTML is optional.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no mail provider is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", ErrNoRecipient
	}

	logger := s.Logger
	if logger == nil {
		logger = slogx.FromContext(ctx)
	}

	id := "<" + idx.New().String() + "@squeezy.local>"
	logger.Info("mail not delivered, no provider configured",
		"id", id,
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return id, nil
}
