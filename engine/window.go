package engine

import (
	"fmt"
	"time"

	"backend/models"
)

// windowRing keeps the active windows in a fixed-size ring buffer, evicting the
// oldest window once capacity is exceeded.
type windowRing struct {
	windows   []*models.StreamWindow
	maxSize   int
	position  int
	full      bool
	evictions int64
}

func newWindowRing(maxSize int) *windowRing {
	return &windowRing{
		windows: make([]*models.StreamWindow, maxSize),
		maxSize: maxSize,
	}
}

// add appends a window in arrival order, dropping the oldest when full.
func (r *windowRing) add(w *models.StreamWindow) {
	if r.full {
		r.evictions++
	}
	r.windows[r.position] = w
	r.position = (r.position + 1) % r.maxSize
	if !r.full && r.position == 0 {
		r.full = true
	}
}

// all returns the retained windows ordered oldest to newest.
func (r *windowRing) all() []*models.StreamWindow {
	if !r.full {
		return r.windows[:r.position]
	}

	result := make([]*models.StreamWindow, r.maxSize)
	for i := 0; i < r.maxSize; i++ {
		result[i] = r.windows[(r.position+i)%r.maxSize]
	}
	return result
}

func (r *windowRing) len() int {
	if r.full {
		return r.maxSize
	}
	return r.position
}

// recent returns up to n of the newest windows, oldest first.
func (r *windowRing) recent(n int) []*models.StreamWindow {
	windows := r.all()
	if n >= len(windows) {
		return windows
	}
	return windows[len(windows)-n:]
}

func (r *windowRing) oldest() *models.StreamWindow {
	windows := r.all()
	if len(windows) == 0 {
		return nil
	}
	return windows[0]
}

func (r *windowRing) newest() *models.StreamWindow {
	windows := r.all()
	if len(windows) == 0 {
		return nil
	}
	return windows[len(windows)-1]
}

func (r *windowRing) reset() {
	r.windows = make([]*models.StreamWindow, r.maxSize)
	r.position = 0
	r.full = false
	r.evictions = 0
}

// assign finds or creates the window containing the event's timestamp, tallies
// the event into it, and returns the window. Late events whose window has
// already been evicted are dropped and nil is returned.
func (r *windowRing) assign(event *models.StreamEvent, size, slide time.Duration) *models.StreamWindow {
	for _, w := range r.all() {
		if w.Contains(event.Timestamp) {
			tally(w, event)
			return w
		}
	}

	start := event.Timestamp.Truncate(slide)
	if oldest := r.oldest(); oldest != nil && r.evictions > 0 && start.Before(oldest.StartTime) {
		// The window for this timestamp was already evicted; bounded-memory
		// policy drops the event rather than resurrecting history.
		return nil
	}

	w := &models.StreamWindow{
		WindowID:  fmt.Sprintf("window_%d", start.UnixMilli()),
		StartTime: start,
		EndTime:   start.Add(size),
		Metrics: models.WindowMetrics{
			TypeCounts: make(map[models.EventType]int),
		},
	}
	tally(w, event)
	r.add(w)
	return w
}

func tally(w *models.StreamWindow, event *models.StreamEvent) {
	w.Events = append(w.Events, event)
	w.Metrics.EventCount++
	w.Metrics.TypeCounts[event.EventType]++
}
