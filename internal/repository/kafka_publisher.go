package repository

import (
	"context"

	"FundPulse/internal/domain/models"
	domrepo "FundPulse/internal/domain/repository"
	pkgkafka "FundPulse/pkg/kafka"
)

// KafkaPricePublisher forwards raw price batches into the intake topic.
type KafkaPricePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPricePublisher creates the intake publisher.
func NewKafkaPricePublisher(producer *pkgkafka.Producer, topic string) domrepo.PricePublisher {
	return &KafkaPricePublisher{producer: producer, topic: topic}
}

func (p *KafkaPricePublisher) PublishPriceUpdate(ctx context.Context, ev *models.PriceUpdate) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Source), ev)
}

func (p *KafkaPricePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaSnapshotPublisher fans network valuation snapshots out to
// downstream consumers.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotPublisher creates the snapshot publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) domrepo.SnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) PublishNetworkHistory(ctx context.Context, h *models.NetworkHistory) error {
	return p.producer.Publish(ctx, p.topic, nil, map[string]interface{}{
		"t":         h.Timestamp,
		"gav":       h.Gav.String(),
		"valid_gav": h.ValidGav,
	})
}

func (p *KafkaSnapshotPublisher) Close() error {
	// Producer is shared with the price publisher; closed there.
	return nil
}
