package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FundPulse/internal/domain/models"
	domrepo "FundPulse/internal/domain/repository"
)

// Pub is the minimal publisher interface the pipeline needs.
type Pub interface {
	PublishPriceUpdate(ctx context.Context, ev *models.PriceUpdate) error
}

// FeedPipeline is a middleware between the gateway WebSocket and Kafka.
// It validates incoming price batches and buffers them when the intake
// topic is unavailable.
type FeedPipeline struct {
	pub     Pub
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.PriceUpdate
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*FeedPipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *FeedPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewFeedPipeline creates a new pipeline.
func NewFeedPipeline(pub Pub, metrics domrepo.Metrics, opts ...PipelineOption) *FeedPipeline {
	p := &FeedPipeline{
		pub:     pub,
		metrics: metrics,
		bufSize: 256,
		bufCh:   make(chan *models.PriceUpdate, 256),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.PriceUpdate, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered batches.
func (p *FeedPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case ev := <-p.bufCh:
				if ev == nil {
					continue
				}
				if err := p.pub.PublishPriceUpdate(ctx, ev); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- ev:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *FeedPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards a price batch downstream, buffering on errors.
func (p *FeedPipeline) Process(ctx context.Context, ev *models.PriceUpdate) error {
	start := time.Now()
	if err := validatePriceUpdate(ev); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.pub.PublishPriceUpdate(ctx, ev); err != nil {
		p.metrics.RecordError("pipeline_publish")
		// buffer non-blocking
		select {
		case p.bufCh <- ev:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
	return nil
}

func validatePriceUpdate(ev *models.PriceUpdate) error {
	if ev == nil {
		return fmt.Errorf("price update nil")
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if len(ev.Prices) != len(ev.Tokens) {
		return fmt.Errorf("prices/tokens length mismatch")
	}
	if len(ev.Tokens) == 0 {
		return fmt.Errorf("empty batch")
	}
	return nil
}
