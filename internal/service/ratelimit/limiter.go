package ratelimit

// IntervalGate allows at most one recomputation per fixed interval of
// event time. Wall clocks are irrelevant here: the gate compares block
// timestamps so replayed events make identical decisions.
type IntervalGate struct {
	interval int64
}

// New creates a gate with the given minimum interval in seconds.
func New(interval int64) *IntervalGate {
	if interval < 0 {
		interval = 0
	}
	return &IntervalGate{interval: interval}
}

// Allow returns true if enough event time has passed since the last
// accepted batch. The caller owns advancing the stored timestamp.
func (g *IntervalGate) Allow(now, last int64) bool {
	return now-last >= g.interval
}

// Interval returns the configured minimum interval.
func (g *IntervalGate) Interval() int64 { return g.interval }
