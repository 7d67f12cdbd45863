package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const kafkaSink = "kafka"

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes groups and positions to one topic, keyed by
// "<objectID>.<odID>" so an object's messages stay on one partition.
type KafkaPublisher struct {
	writer  messageWriter
	metrics PublisherMetrics
	log     logrus.FieldLogger
}

func NewKafkaPublisher(brokers []string, topic string, m PublisherMetrics, log logrus.FieldLogger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: empty topic")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	if m != nil {
		m.SetConnected(true)
	}
	log.WithFields(logrus.Fields{"brokers": brokers, "topic": topic}).Info("kafka writer ready")
	return &KafkaPublisher{writer: w, metrics: m, log: log}, nil
}

func (p *KafkaPublisher) PublishGroup(ctx context.Context, msg GroupMessage) error {
	return p.write(ctx, "group", Subject(msg.ObjectID, msg.ODID), msg)
}

func (p *KafkaPublisher) PublishPosition(ctx context.Context, msg PositionMessage) error {
	return p.write(ctx, "position", Subject(msg.ObjectID, msg.ODID), msg)
}

func (p *KafkaPublisher) write(ctx context.Context, kind, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   b,
		Headers: []kafka.Header{{Key: "kind", Value: []byte(kind)}},
	})
	observe(p.metrics, kafkaSink, start, err)
	if err != nil {
		p.log.WithError(err).WithField("key", key).Error("kafka write failed")
	}
	return err
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		p.log.Errorf("Error closing Kafka writer: %v", err)
		return err
	}
	if p.metrics != nil {
		p.metrics.SetConnected(false)
	}
	return nil
}
