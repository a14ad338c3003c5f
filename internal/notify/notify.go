package notify

import (
	"context"

	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

// ContactBook resolves a candidate id to delivery addresses. A missing
// contact is not an error; the sink just skips the candidate.
type ContactBook interface {
	Email(candidateID string) (name, address string, ok bool)
	TelegramChat(candidateID string) (chatID int64, ok bool)
}

func subject(kind slots.NotificationKind) string {
	switch kind {
	case slots.NotifyBooked:
		return "Your interview is confirmed"
	case slots.NotifyRescheduled:
		return "Your interview has been moved"
	case slots.NotifyCancelled:
		return "Your interview has been cancelled"
	default:
		return "Interview update"
	}
}

// Multi fans a notification out to several sinks; one failing sink does
// not stop the others.
func Multi(log logger.Logger, sinks ...slots.NotificationSink) slots.NotificationSink {
	return &multiSink{sinks: sinks, logger: log.With("notify")}
}

type multiSink struct {
	sinks  []slots.NotificationSink
	logger logger.Logger
}

func (m *multiSink) Notify(ctx context.Context, candidateID, slotID string, kind slots.NotificationKind) error {
	for _, s := range m.sinks {
		err := s.Notify(ctx, candidateID, slotID, kind)
		if err != nil {
			m.logger.Warn(errors.WrapFail(err, "deliver notification"))
		}
	}
	return nil
}

// NewLogSink logs notifications instead of delivering them, for
// development runs.
func NewLogSink(log logger.Logger) slots.NotificationSink {
	return &logSink{logger: log.With("notify")}
}

type logSink struct {
	logger logger.Logger
}

func (s *logSink) Notify(_ context.Context, candidateID, slotID string, kind slots.NotificationKind) error {
	s.logger.Infof("%s candidate=%s slot=%s", kind, candidateID, slotID)
	return nil
}
