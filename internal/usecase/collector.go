package usecase

import (
	"context"

	"FundPulse/internal/domain/models"
	drepo "FundPulse/internal/domain/repository"
	mid "FundPulse/internal/middleware"
)

// FeedCollector reads price batches from the chain gateway stream and
// forwards them into the intake topic.
type FeedCollector struct {
	stream  drepo.PriceStream
	pub     drepo.PricePublisher
	metrics drepo.Metrics
	pipe    *mid.FeedPipeline
}

// NewFeedCollector creates a new FeedCollector instance.
func NewFeedCollector(stream drepo.PriceStream, pub drepo.PricePublisher, metrics drepo.Metrics, pipe *mid.FeedPipeline) *FeedCollector {
	return &FeedCollector{stream: stream, pub: pub, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the gateway stream is connected.
func (c *FeedCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *FeedCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

// consume pumps the stream until the context is cancelled. A read error
// kills the stream's read loop and closes both channels, so after a
// reconnect the channels must be replaced with a fresh Read.
func (c *FeedCollector) consume(ctx context.Context, evCh <-chan *models.PriceUpdate, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err == nil {
				continue
			}
			if ok {
				c.metrics.RecordError("stream")
			}
			evCh, errCh = c.reopen(ctx)
			if evCh == nil {
				return
			}
		case ev, ok := <-evCh:
			if !ok {
				// Drained after the read loop died; the error side
				// drives the reconnect.
				evCh = nil
				continue
			}
			if ev == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, ev)
			} else {
				_ = c.pub.PublishPriceUpdate(ctx, ev)
			}
		}
	}
}

// reopen re-dials the stream and returns fresh read channels. Returns nil
// channels once the context is cancelled. The stream's own reconnect delay
// paces the retry loop.
func (c *FeedCollector) reopen(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			continue
		}
		return c.stream.Read(ctx)
	}
}

func (c *FeedCollector) Stop() error { return c.stream.Close() }

// Shutdown stops pipeline and closes stream.
func (c *FeedCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if c.pub != nil {
		_ = c.pub.Close()
	}
	return c.stream.Close()
}
