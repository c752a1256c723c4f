package pubsub

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// Publisher publishes domain events after state transitions have been
// committed. Implementations must not be called inside a database
// transaction.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte)
	Close()
}

type confluentKafkaPublisher struct {
	logger   *logrus.Logger
	producer *kafka.Producer
}

func PublisherFromConfluentKafkaProducer(logger *logrus.Logger, producer *kafka.Producer) Publisher {
	p := &confluentKafkaPublisher{
		logger:   logger,
		producer: producer,
	}

	go p.watchDeliveryReports()

	return p
}

func (p *confluentKafkaPublisher) watchDeliveryReports() {
	for e := range p.producer.Events() {
		m, ok := e.(*kafka.Message)
		if !ok {
			continue
		}

		if m.TopicPartition.Error != nil {
			p.logger.WithFields(logrus.Fields{
				"topic": *m.TopicPartition.Topic,
				"key":   string(m.Key),
			}).WithError(m.TopicPartition.Error).Error("message delivery failed")
		}
	}
}

// Publish is fire-and-forget; delivery failures surface through the
// producer's event channel and are logged there.
func (p *confluentKafkaPublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte) {
	kh := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(v)})
	}

	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Headers:        kh,
		Value:          message,
	}, nil)
	if err != nil {
		p.logger.WithContext(ctx).WithField("topic", topic).WithError(err).Error()
	}
}

func (p *confluentKafkaPublisher) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}
