package notify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

type TelegramConfig struct {
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

func NewTelegramSink(cfg TelegramConfig, contacts ContactBook, log logger.Logger) (slots.NotificationSink, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.Token,
		Updates: 256,
		Poller: &telebot.LongPoller{
			Timeout: cfg.PollInterval,
		},
	})
	if err != nil {
		return nil, errors.WrapFail(err, "init telegram bot")
	}

	return &telegramSink{
		bot:      bot,
		contacts: contacts,
		logger:   log.With("notify_telegram"),
	}, nil
}

type telegramSink struct {
	bot      *telebot.Bot
	contacts ContactBook
	logger   logger.Logger
}

func (s *telegramSink) Notify(_ context.Context, candidateID, slotID string, kind slots.NotificationKind) error {
	chatID, ok := s.contacts.TelegramChat(candidateID)
	if !ok {
		s.logger.Debugf("no telegram contact for candidate %s", candidateID)
		return nil
	}

	text := fmt.Sprintf("%s (slot %s)", subject(kind), slotID)
	_, err := s.bot.Send(telebot.ChatID(chatID), text)
	return errors.WrapFail(err, "send telegram message")
}
