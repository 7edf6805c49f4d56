package repository

import (
	"context"

	domrepo "StockCast/internal/domain/repository"
	"StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
)

// KafkaSink publishes training telemetry to one Kafka topic, keyed by symbol
// so events for a symbol stay ordered within a partition. Publish errors are
// logged and swallowed: telemetry must never fail a training run.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	l        *applogger.Logger
}

type kafkaEnvelope struct {
	Type  string      `json:"type"`
	Event interface{} `json:"event"`
}

// NewKafkaSink creates a sink over an existing producer.
func NewKafkaSink(producer *kafka.Producer, topic string, l *applogger.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, l: l}
}

func (s *KafkaSink) ReportTrial(ctx context.Context, ev domrepo.TrialEvent) {
	s.publish(ctx, ev.Symbol, kafkaEnvelope{Type: "trial", Event: ev})
}

func (s *KafkaSink) ReportHorizon(ctx context.Context, ev domrepo.HorizonEvent) {
	s.publish(ctx, ev.Symbol, kafkaEnvelope{Type: "horizon", Event: ev})
}

func (s *KafkaSink) ReportRun(ctx context.Context, ev domrepo.RunEvent) {
	s.publish(ctx, ev.Symbol, kafkaEnvelope{Type: "run", Event: ev})
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

func (s *KafkaSink) publish(ctx context.Context, symbol string, env kafkaEnvelope) {
	if err := s.producer.Publish(ctx, s.topic, []byte(symbol), env); err != nil {
		if s.l != nil {
			s.l.Warn("kafka report publish failed",
				applogger.String("topic", s.topic),
				applogger.String("symbol", symbol),
				applogger.String("type", env.Type),
				applogger.Error(err),
			)
		}
	}
}
