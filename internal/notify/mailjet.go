package notify

import (
	"context"
	"fmt"

	"villastay/internal/config"

	"github.com/mailjet/mailjet-apiv3-go"
)

type sendMailFunc func(*mailjet.MessagesV31) (*mailjet.ResultsV31, error)

// MailjetNotifier sends guest emails through the Mailjet v3.1 send API.
type MailjetNotifier struct {
	send   sendMailFunc
	sender mailjet.RecipientV31
}

func NewMailjetNotifier(cfg config.MailjetConfig) *MailjetNotifier {
	client := mailjet.NewMailjetClient(cfg.APIKeyPublic, cfg.APIKeyPrivate)
	return newMailjetNotifier(func(m *mailjet.MessagesV31) (*mailjet.ResultsV31, error) {
		return client.SendMailV31(m)
	}, cfg)
}

func newMailjetNotifier(send sendMailFunc, cfg config.MailjetConfig) *MailjetNotifier {
	return &MailjetNotifier{
		send:   send,
		sender: mailjet.RecipientV31{Email: cfg.SenderEmail, Name: cfg.SenderName},
	}
}

func (n *MailjetNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Recipient == "" {
		return fmt.Errorf("mailjet: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := n.sender
	messages := &mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From:     &from,
		To:       &mailjet.RecipientsV31{{Email: msg.Recipient}},
		Subject:  msg.Subject,
		TextPart: msg.Body,
	}}}

	if _, err := n.send(messages); err != nil {
		return fmt.Errorf("mailjet send to %s: %w", msg.Recipient, err)
	}
	return nil
}
