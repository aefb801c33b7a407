package recorder

import "time"

// SwapEvent records one confirmed swap or rotation-relevant trade outcome.
type SwapEvent struct {
	Wallet     string
	Side       string // "buy" or "sell"
	Signature  string
	Amount     uint64 // lamports for buys, token minor units for sells
	ExecutedAt time.Time
}

// Swap side constants
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Recorder persists swap outcomes for later analysis.
type Recorder interface {
	RecordSwap(evt *SwapEvent) error
	Close() error
}

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSwap(_ *SwapEvent) error { return nil }
func (n *NoopRecorder) Close() error                  { return nil }
