package mail

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

// Mailgun delivers mail through the Mailgun HTTP API.
type Mailgun struct {
	client *mg.MailgunImpl
	sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{
		client: mg.NewMailgun(domain, apiKey),
		sender: sender,
	}
}

// SetAPIBase points the client at another endpoint, e.g. mg.APIBaseEU or a
// test server.
func (m *Mailgun) SetAPIBase(base string) {
	m.client.SetAPIBase(base)
}

func (m *Mailgun) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", ErrNoRecipient
	}

	message := m.client.NewMessage(m.sender, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, id, err := m.client.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return id, nil
}
