package engine

import (
	"fmt"

	"backend/models"
)

const (
	patternScanWindows = 6
	patternMinWindows  = 3
	trendMinWindows    = 4
)

// DetectPatterns scans the most recent windows for spikes and directional
// trends and attaches any findings to the responsible window. Detection is
// idempotent: a window never collects two patterns of the same type.
func DetectPatterns(windows []*models.StreamWindow) {
	if len(windows) > patternScanWindows {
		windows = windows[len(windows)-patternScanWindows:]
	}
	if len(windows) < patternMinWindows {
		return
	}

	detectSpike(windows)
	detectTrend(windows)
}

// detectSpike flags the maximal window when it exceeds twice the average count.
func detectSpike(windows []*models.StreamWindow) {
	var sum float64
	maxIdx := 0
	for i, w := range windows {
		sum += float64(w.Metrics.EventCount)
		if w.Metrics.EventCount > windows[maxIdx].Metrics.EventCount {
			maxIdx = i
		}
	}

	avg := sum / float64(len(windows))
	if avg == 0 {
		return
	}

	peak := windows[maxIdx]
	ratio := float64(peak.Metrics.EventCount) / avg
	if ratio <= 2 {
		return
	}
	if peak.HasPattern(models.PatternSpike) {
		return
	}

	significance := "medium"
	if ratio > 3 {
		significance = "high"
	}

	peak.Metrics.Patterns = append(peak.Metrics.Patterns, models.Pattern{
		Type:       models.PatternSpike,
		Confidence: 85,
		Description: fmt.Sprintf("Event spike: %d events vs average %.1f",
			peak.Metrics.EventCount, avg),
		StartTime:    peak.StartTime,
		EndTime:      peak.EndTime,
		Significance: significance,
	})
}

// detectTrend compares the first and second halves of the window series and
// attaches a directional trend to the newest window when activity shifted by
// more than 30% either way.
func detectTrend(windows []*models.StreamWindow) {
	if len(windows) < trendMinWindows {
		return
	}

	half := len(windows) / 2
	firstAvg := avgEventCount(windows[:half])
	secondAvg := avgEventCount(windows[half:])

	var direction string
	switch {
	case secondAvg > firstAvg*1.3:
		direction = "increasing"
	case secondAvg < firstAvg*0.7:
		direction = "decreasing"
	default:
		return
	}

	last := windows[len(windows)-1]
	if last.HasPattern(models.PatternTrend) {
		return
	}

	last.Metrics.Patterns = append(last.Metrics.Patterns, models.Pattern{
		Type:       models.PatternTrend,
		Confidence: 75,
		Description: fmt.Sprintf("%s trend: average %.1f -> %.1f events per window",
			direction, firstAvg, secondAvg),
		StartTime:    windows[0].StartTime,
		EndTime:      last.EndTime,
		Significance: direction,
	})
}

func avgEventCount(windows []*models.StreamWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	var sum float64
	for _, w := range windows {
		sum += float64(w.Metrics.EventCount)
	}
	return sum / float64(len(windows))
}
