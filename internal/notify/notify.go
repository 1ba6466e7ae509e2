// Package notify delivers outbox messages to guests and managers.
package notify

import (
	"context"
	"fmt"

	"villastay/internal/models"

	"github.com/rs/zerolog"
)

// Message is one delivery. For email Recipient is an address, for telegram a
// chat id, for sheets a spreadsheet id.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

func FromNotification(n *models.Notification) Message {
	return Message{Recipient: n.Recipient, Subject: n.Subject, Body: n.Body}
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier stands in for a channel that has no credentials configured.
type LogNotifier struct {
	channel string
	logger  *zerolog.Logger
}

func NewLogNotifier(channel string, logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{channel: channel, logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Recipient == "" {
		return fmt.Errorf("%s: empty recipient", n.channel)
	}
	n.logger.Info().
		Str("channel", n.channel).
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Msg("notification not delivered, channel is not configured")
	return nil
}
