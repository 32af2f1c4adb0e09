package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPulse/internal/domain/models"
)

// scriptedStream fails its first read loop with one error, then serves one
// event per subsequent Read.
type scriptedStream struct {
	mu         sync.Mutex
	connected  bool
	reads      int
	reconnects int
	ev         *models.PriceUpdate
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(context.Context) error { return nil }

func (s *scriptedStream) Read(context.Context) (<-chan *models.PriceUpdate, <-chan error) {
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	updates := make(chan *models.PriceUpdate, 1)
	errs := make(chan error, 1)
	if n == 1 {
		errs <- errors.New("connection reset")
		close(errs)
		close(updates)
	} else {
		updates <- s.ev
	}
	return updates, errs
}

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.connected = true
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) counts() (reads, reconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

// chanPub hands published events to the test goroutine.
type chanPub struct {
	ch chan *models.PriceUpdate
}

func (p *chanPub) PublishPriceUpdate(_ context.Context, ev *models.PriceUpdate) error {
	p.ch <- ev
	return nil
}

func (p *chanPub) Close() error { return nil }

func TestFeedCollectorResumesAfterStreamError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ev := &models.PriceUpdate{
		Source:    "0xfeed",
		Timestamp: 1000,
		Tokens:    []string{"tokenA"},
		Prices:    []string{"1"},
	}
	stream := &scriptedStream{ev: ev}
	pub := &chanPub{ch: make(chan *models.PriceUpdate, 1)}
	c := NewFeedCollector(stream, pub, &fakeMetrics{}, nil)

	require.NoError(t, c.Start(ctx))

	// The first read loop dies immediately; the collector must re-dial and
	// consume the fresh connection.
	select {
	case got := <-pub.ch:
		assert.Equal(t, ev, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no event published after stream error")
	}

	reads, reconnects := stream.counts()
	assert.Equal(t, 1, reconnects)
	assert.Equal(t, 2, reads, "reconnected stream must be read again")
}
