package engine

import (
	"math"

	"backend/models"
)

const forecastWindows = 6

// forecastMetric extracts the requested per-window metric series.
func forecastMetric(windows []*models.StreamWindow, metric string) []float64 {
	values := make([]float64, len(windows))
	for i, w := range windows {
		switch metric {
		case "anomalies":
			values[i] = float64(w.Metrics.AnomalyCount)
		default: // "events"
			values[i] = float64(w.Metrics.EventCount)
		}
	}
	return values
}

// forecast fits an ordinary least-squares line over the recent window series
// to predict the metric one step ahead. With fewer than 2 windows it returns a
// low-confidence stable default rather than failing.
func forecast(windows []*models.StreamWindow, baseline *Baseline, metric string, horizonMinutes int) models.Forecast {
	if len(windows) < 2 {
		current := baseline.Value(metric)
		return models.Forecast{
			Metric:         metric,
			CurrentValue:   current,
			PredictedValue: current,
			Confidence:     30,
			TimeHorizon:    horizonMinutes,
			Trend:          models.TrendStable,
		}
	}

	if len(windows) > forecastWindows {
		windows = windows[len(windows)-forecastWindows:]
	}
	values := forecastMetric(windows, metric)
	n := float64(len(values))

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	slope := 0.0
	if denom := n*sumXX - sumX*sumX; denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / n

	predicted := math.Max(0, slope*n+intercept)

	yMean := sumY / n
	confidence := 0.0
	if yMean != 0 {
		var variance float64
		for _, y := range values {
			diff := y - yMean
			variance += diff * diff
		}
		variance /= n
		confidence = clamp(100-(variance/yMean)*50, 0, 100)
	}

	trend := models.TrendStable
	switch {
	case slope > 0.1:
		trend = models.TrendIncreasing
	case slope < -0.1:
		trend = models.TrendDecreasing
	}

	return models.Forecast{
		Metric:         metric,
		CurrentValue:   values[len(values)-1],
		PredictedValue: predicted,
		Confidence:     confidence,
		TimeHorizon:    horizonMinutes,
		Trend:          trend,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
