package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FundPulse/internal/domain/models"
	drepo "FundPulse/internal/domain/repository"
	pkgkafka "FundPulse/pkg/kafka"
)

// KafkaPricesHandler consumes price update events and runs the valuation
// pipeline. Errors propagate to the consumer, which retries and finally
// routes the event to the DLQ.
type KafkaPricesHandler struct {
	topic    string
	pipeline *ValuationPipeline
	metrics  drepo.Metrics
}

func NewKafkaPricesHandler(topic string, pipeline *ValuationPipeline, metrics drepo.Metrics) *KafkaPricesHandler {
	return &KafkaPricesHandler{topic: topic, pipeline: pipeline, metrics: metrics}
}

func (h *KafkaPricesHandler) Topic() string { return h.topic }

// incoming message schema: {source, t, prices[], tokens[]}
func (h *KafkaPricesHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.PriceUpdate
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if ev.Timestamp > 1e11 { // ms
		ev.Timestamp = ev.Timestamp / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(ev.Timestamp, 0)).Seconds())

	return h.pipeline.HandlePriceUpdate(ctx, &ev)
}

var _ pkgkafka.MessageHandler = (*KafkaPricesHandler)(nil)
