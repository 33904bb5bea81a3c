package engine

import (
	"testing"
	"time"

	"backend/models"

	"github.com/stretchr/testify/assert"
)

func batchOf(counts map[models.EventType]int) []*models.StreamEvent {
	var events []*models.StreamEvent
	ts := testBase
	for eventType, n := range counts {
		for i := 0; i < n; i++ {
			events = append(events, testEvent(eventType, ts))
			ts = ts.Add(time.Second)
		}
	}
	return events
}

func TestBaselineFirstObservation(t *testing.T) {
	b := NewBaseline()
	assert.Zero(t, b.Rate(models.EventBooking))

	b.Update(batchOf(map[models.EventType]int{models.EventBooking: 10}))

	// Pure booking batch: 0*0.8 + 1.0*0.2
	assert.InDelta(t, 0.2, b.Rate(models.EventBooking), 1e-9)
	assert.Zero(t, b.Rate(models.EventComplaint))
}

func TestBaselineEWMABlending(t *testing.T) {
	b := NewBaseline()
	batch := batchOf(map[models.EventType]int{models.EventBooking: 10})

	b.Update(batch)
	b.Update(batch)
	assert.InDelta(t, 0.36, b.Rate(models.EventBooking), 1e-9)

	b.Update(batch)
	assert.InDelta(t, 0.488, b.Rate(models.EventBooking), 1e-9)
}

func TestBaselineMixedBatchShares(t *testing.T) {
	b := NewBaseline()
	b.Update(batchOf(map[models.EventType]int{
		models.EventBooking:   6,
		models.EventComplaint: 4,
	}))

	assert.InDelta(t, 0.12, b.Rate(models.EventBooking), 1e-9)   // 0.6 * 0.2
	assert.InDelta(t, 0.08, b.Rate(models.EventComplaint), 1e-9) // 0.4 * 0.2
}

func TestBaselineEmptyBatchNoop(t *testing.T) {
	b := NewBaseline()
	b.Update(nil)
	assert.Empty(t, b.Snapshot())
}

func TestBaselineCloneIsIndependent(t *testing.T) {
	b := NewBaseline()
	b.Update(batchOf(map[models.EventType]int{models.EventBooking: 5}))

	clone := b.Clone()
	b.Update(batchOf(map[models.EventType]int{models.EventBooking: 5}))

	assert.InDelta(t, 0.2, clone.Rate(models.EventBooking), 1e-9)
	assert.InDelta(t, 0.36, b.Rate(models.EventBooking), 1e-9)
}

func TestBaselineReset(t *testing.T) {
	b := NewBaseline()
	b.Update(batchOf(map[models.EventType]int{models.EventBooking: 5}))
	b.Reset()

	assert.Zero(t, b.Rate(models.EventBooking))
	assert.Empty(t, b.Snapshot())
}

func TestRateKey(t *testing.T) {
	assert.Equal(t, "booking_rate", RateKey(models.EventBooking))
	assert.Equal(t, "room_service_rate", RateKey(models.EventRoomService))
}
