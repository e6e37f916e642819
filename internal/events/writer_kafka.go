package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/pkg/errors"
)

// KafkaWriter publishes events to a kafka cluster through a synchronous
// producer. Delivery ordering within a job follows from the event id key.
type KafkaWriter struct {
	producer sarama.SyncProducer
}

func NewKafkaWriter(brokers []string, version, clientID string) (*KafkaWriter, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	if version != "" {
		v, err := sarama.ParseKafkaVersion(version)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse kafka version")
		}
		cfg.Version = v
	}
	if clientID != "" {
		cfg.ClientID = clientID
	}

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kafka producer")
	}

	return &KafkaWriter{producer: producer}, nil
}

func (w *KafkaWriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(e.ID()),
		Value: sarama.ByteEncoder(data),
	}
	_, _, err = w.producer.SendMessage(msg)
	return err
}

func (w *KafkaWriter) Close(_ context.Context) error {
	return w.producer.Close()
}
