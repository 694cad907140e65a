package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/cenkalti/backoff/v4"

	"github.com/halonet/billing-engine/internal/config"
	ierr "github.com/halonet/billing-engine/internal/errors"
	"github.com/halonet/billing-engine/internal/kafka"
	"github.com/halonet/billing-engine/internal/logger"
)

// KafkaPublisher dispatches notifications to a Kafka topic. Messages are
// keyed by client id so per-client ordering is preserved.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.Logger
}

// NewKafkaPublisher connects a sync producer with bounded startup backoff
func NewKafkaPublisher(cfg *config.Configuration, log *logger.Logger) (*KafkaPublisher, error) {
	saramaCfg := kafka.GetSaramaConfig(cfg)

	var producer sarama.SyncProducer
	connect := func() error {
		var err error
		producer, err = sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Kafka brokers did not become reachable").
			WithReportableDetails(map[string]interface{}{
				"brokers": cfg.Kafka.Brokers,
			}).
			Mark(ierr.ErrSystem)
	}

	log.Infow("connected notification producer",
		"brokers", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.NotificationTopic)

	return &KafkaPublisher{
		producer: producer,
		topic:    cfg.Kafka.NotificationTopic,
		logger:   log,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal notification").
			Mark(ierr.ErrInternal)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(n.ClientID),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now().UTC(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish notification").
			WithReportableDetails(map[string]interface{}{
				"client_id": n.ClientID,
				"type":      n.Type,
			}).
			Mark(ierr.ErrSystem)
	}

	p.logger.Debugw("published notification",
		"client_id", n.ClientID,
		"type", n.Type,
		"partition", partition,
		"offset", offset)
	return nil
}

// Close shuts down the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher is a Publisher that only logs; used when no broker is
// configured (local runs, tests that don't assert on dispatches).
type LogPublisher struct {
	logger *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log}
}

func (p *LogPublisher) Publish(ctx context.Context, n *Notification) error {
	p.logger.Infow("notification dispatch",
		"client_id", n.ClientID,
		"type", n.Type,
		"data", n.Data)
	return nil
}
