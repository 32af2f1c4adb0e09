package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPulse/internal/domain/models"
)

type stubPub struct {
	published []*models.PriceUpdate
	err       error
}

func (p *stubPub) PublishPriceUpdate(_ context.Context, ev *models.PriceUpdate) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, ev)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordBatch(int, int)           {}
func (nopMetrics) RecordBatchSkipped(string)      {}
func (nopMetrics) RecordFundValued(bool)          {}
func (nopMetrics) RecordNetworkGav(float64, bool) {}
func (nopMetrics) RecordError(string)             {}
func (nopMetrics) RecordLatency(string, float64)  {}

func validEvent() *models.PriceUpdate {
	return &models.PriceUpdate{
		Source:    "0xfeed",
		Timestamp: 1000,
		Tokens:    []string{"a"},
		Prices:    []string{"1"},
	}
}

func TestProcessPublishes(t *testing.T) {
	pub := &stubPub{}
	p := NewFeedPipeline(pub, nopMetrics{})

	require.NoError(t, p.Process(context.Background(), validEvent()))
	assert.Len(t, pub.published, 1)
}

func TestProcessRejectsInvalid(t *testing.T) {
	pub := &stubPub{}
	p := NewFeedPipeline(pub, nopMetrics{})

	cases := []*models.PriceUpdate{
		nil,
		{Timestamp: 0, Tokens: []string{"a"}, Prices: []string{"1"}},
		{Timestamp: 1000, Tokens: []string{"a"}, Prices: []string{"1", "2"}},
		{Timestamp: 1000},
	}
	for _, ev := range cases {
		assert.Error(t, p.Process(context.Background(), ev))
	}
	assert.Empty(t, pub.published)
}

func TestProcessBuffersOnPublishFailure(t *testing.T) {
	pub := &stubPub{err: errors.New("broker down")}
	p := NewFeedPipeline(pub, nopMetrics{}, WithBufferSize(4))

	ev := validEvent()
	require.Error(t, p.Process(context.Background(), ev))

	select {
	case buffered := <-p.bufCh:
		assert.Equal(t, ev, buffered)
	default:
		t.Fatalf("expected event buffered for retry")
	}
}

func TestWithBufferSize(t *testing.T) {
	p := NewFeedPipeline(&stubPub{}, nopMetrics{}, WithBufferSize(8))
	assert.Equal(t, 8, cap(p.bufCh))
}
