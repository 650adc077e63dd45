package repository

import (
	"context"

	"FusionRisk/internal/domain/models"
	domrepo "FusionRisk/internal/domain/repository"
	pkgkafka "FusionRisk/pkg/kafka"
)

// KafkaRiskPublisher publishes persisted risk events keyed by event type.
type KafkaRiskPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaRiskPublisher(producer *pkgkafka.Producer, topic string) *KafkaRiskPublisher {
	return &KafkaRiskPublisher{producer: producer, topic: topic}
}

func (p *KafkaRiskPublisher) PublishRiskEvents(ctx context.Context, events []models.RiskEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(e.EventType), Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// NoopRiskPublisher is used when Kafka is disabled.
type NoopRiskPublisher struct{}

func (NoopRiskPublisher) PublishRiskEvents(context.Context, []models.RiskEvent) error { return nil }

var (
	_ domrepo.RiskEventPublisher = (*KafkaRiskPublisher)(nil)
	_ domrepo.RiskEventPublisher = NoopRiskPublisher{}
)
