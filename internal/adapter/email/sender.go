// Package email implements the mailer port over SMTP.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Strob0t/DealForge/internal/config"
	"github.com/Strob0t/DealForge/internal/port/mailer"
)

// Sender transmits validated negotiation emails via SMTP. Threading headers
// keep the reply inside the influencer's existing conversation.
type Sender struct {
	cfg config.SMTP
}

// NewSender creates a new SMTP sender.
func NewSender(cfg config.SMTP) *Sender {
	return &Sender{cfg: cfg}
}

// Send transmits the message. The caller is responsible for incrementing the
// negotiation round only after Send returns nil.
func (s *Sender) Send(_ context.Context, msg mailer.Message) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	raw := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nIn-Reply-To: <%s>\r\nReferences: <%s>\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		s.cfg.From, msg.To, msg.Subject, msg.ThreadID, msg.ThreadID, msg.Body)

	var auth smtp.Auth
	if s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, []byte(raw)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
