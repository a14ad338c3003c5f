package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func NewKafkaSink(cfg Config, log logger.Logger) *kafkaSink {
	return &kafkaSink{
		client: &kafka.Client{
			Addr:    kafka.TCP(cfg.Brokers...),
			Timeout: time.Second * 5,
		},
		topic:  cfg.Topic,
		logger: log.With("audit_kafka"),
	}
}

type kafkaSink struct {
	client *kafka.Client
	topic  string
	logger logger.Logger
}

func (s *kafkaSink) Record(ctx context.Context, event slots.AuditEvent) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		return errors.WrapFail(err, "marshal audit event")
	}

	record := kafka.Record{
		Key:   kafka.NewBytes([]byte(event.TenantID)),
		Value: kafka.NewBytes(bytes),
	}

	_, err = s.client.Produce(ctx, &kafka.ProduceRequest{
		Topic:        s.topic,
		RequiredAcks: 1,
		Records:      kafka.NewRecordReader(record),
	})
	return errors.WrapFail(err, "produce audit record")
}

// NewLogSink writes audit events to the log, for development runs
// without a broker.
func NewLogSink(log logger.Logger) *logSink {
	return &logSink{logger: log.With("audit")}
}

type logSink struct {
	logger logger.Logger
}

func (s *logSink) Record(_ context.Context, event slots.AuditEvent) error {
	s.logger.Infof("%s slot=%s tenant=%s actor=%s", event.Action, event.SlotID, event.TenantID, event.ActorID)
	return nil
}
