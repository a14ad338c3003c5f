package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

type EmailConfig struct {
	APIKey   string `yaml:"api_key"`
	FromName string `yaml:"from_name"`
	FromAddr string `yaml:"from_addr"`
}

func NewEmailSink(cfg EmailConfig, contacts ContactBook, log logger.Logger) slots.NotificationSink {
	return &emailSink{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     mail.NewEmail(cfg.FromName, cfg.FromAddr),
		contacts: contacts,
		logger:   log.With("notify_email"),
	}
}

type emailSink struct {
	client   *sendgrid.Client
	from     *mail.Email
	contacts ContactBook
	logger   logger.Logger
}

func (s *emailSink) Notify(_ context.Context, candidateID, slotID string, kind slots.NotificationKind) error {
	name, address, ok := s.contacts.Email(candidateID)
	if !ok {
		s.logger.Debugf("no email contact for candidate %s", candidateID)
		return nil
	}

	body := fmt.Sprintf("Interview slot %s: %s.", slotID, kind)
	message := mail.NewSingleEmail(s.from, subject(kind), mail.NewEmail(name, address), body, "")

	response, err := s.client.Send(message)
	if err != nil {
		return errors.WrapFail(err, "send email")
	}
	if response.StatusCode >= 300 {
		return errors.Error("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
