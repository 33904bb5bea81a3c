package engine

import (
	"fmt"

	"backend/models"
)

// ewmaAlpha is the smoothing factor blended into the baseline on every batch.
const ewmaAlpha = 0.2

// Baseline maintains an exponentially weighted moving average of each event
// type's share of traffic, used as the "expected" rate by the anomaly detector.
type Baseline struct {
	rates map[string]float64
}

// NewBaseline creates an empty baseline. Unobserved keys read as 0, which the
// detector treats as insufficient data.
func NewBaseline() *Baseline {
	return &Baseline{rates: make(map[string]float64)}
}

// RateKey is the baseline key for an event type.
func RateKey(t models.EventType) string {
	return fmt.Sprintf("%s_rate", t)
}

// Update blends each type's share of the batch into the running baseline.
func (b *Baseline) Update(events []*models.StreamEvent) {
	if len(events) == 0 {
		return
	}

	counts := make(map[models.EventType]int)
	for _, e := range events {
		counts[e.EventType]++
	}

	batchSize := float64(len(events))
	for t, n := range counts {
		key := RateKey(t)
		observed := float64(n) / batchSize
		b.rates[key] = b.rates[key]*(1-ewmaAlpha) + observed*ewmaAlpha
	}
}

// Rate returns the baseline rate for an event type; 0 means never observed.
func (b *Baseline) Rate(t models.EventType) float64 {
	return b.rates[RateKey(t)]
}

// Value returns the baseline value for a raw metric key.
func (b *Baseline) Value(key string) float64 {
	return b.rates[key]
}

// Snapshot returns a copy of all baseline entries.
func (b *Baseline) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(b.rates))
	for k, v := range b.rates {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of the baseline.
func (b *Baseline) Clone() *Baseline {
	return &Baseline{rates: b.Snapshot()}
}

// Reset clears all learned rates.
func (b *Baseline) Reset() {
	b.rates = make(map[string]float64)
}
