package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/store/kafka"
)

// Kafka writes events as JSON keyed by username, so one user's events stay
// in one partition.
type Kafka struct {
	writer kafka.Writer
	logger *log.Logger
}

func NewKafka(w kafka.Writer, logger *log.Logger) *Kafka {
	if logger == nil {
		logger = log.G()
	}
	return &Kafka{writer: w, logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		k.logger.Warn().Err(err).Msg("encode session event")
		return
	}
	msg := kafkago.Message{
		Key:   []byte(e.Username),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := k.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		k.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("publish session event")
	}
}
