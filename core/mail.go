package core

import "net/mail"

type (
	EmailMessage struct {
		To          []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails.
	// Delivery is best-effort: implementations log failures and never surface
	// them to the caller, so a broken mail transport cannot fail the
	// operation that triggered the email.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// NewEmailMessage builds a single-recipient message with a text body and an
// optional HTML alternative.
func NewEmailMessage(to mail.Address, subject, text, html string) *EmailMessage {
	return &EmailMessage{
		To:          []mail.Address{to},
		Subject:     subject,
		TextContent: text,
		HTMLContent: html,
	}
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
