package ratelimit

import "testing"

func TestAllow(t *testing.T) {
	g := New(300)

	if g.Allow(1200, 1000) {
		t.Fatalf("expected gate closed 200s after last update")
	}
	if !g.Allow(1300, 1000) {
		t.Fatalf("expected gate open exactly at the interval")
	}
	if !g.Allow(2000, 1000) {
		t.Fatalf("expected gate open past the interval")
	}
}

func TestAllowFirstEvent(t *testing.T) {
	g := New(300)
	if !g.Allow(500, 0) {
		t.Fatalf("expected first event allowed")
	}
}

func TestZeroInterval(t *testing.T) {
	g := New(0)
	if !g.Allow(1000, 1000) {
		t.Fatalf("expected zero interval to pass everything")
	}
}

func TestNegativeIntervalClamped(t *testing.T) {
	g := New(-5)
	if g.Interval() != 0 {
		t.Fatalf("expected negative interval clamped to zero, got %d", g.Interval())
	}
}
