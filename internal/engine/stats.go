package engine

import (
	"math"

	"GridPulse/internal/domain/models"
)

// linFit is a least-squares line y = intercept + slope*x.
type linFit struct {
	slope     float64
	intercept float64
}

func (f linFit) at(x float64) float64 { return f.intercept + f.slope*x }

// fitLine fits a line over (xs[i], ys[i]). Degenerate inputs (fewer than two
// points, or zero x-variance) yield a flat line at the mean.
func fitLine(xs, ys []float64) linFit {
	n := float64(len(xs))
	if len(xs) < 2 || len(xs) != len(ys) {
		return linFit{intercept: mean(ys)}
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n
	var sxy, sxx float64
	for i := range xs {
		dx := xs[i] - meanX
		sxy += dx * (ys[i] - meanY)
		sxx += dx * dx
	}
	if sxx == 0 {
		return linFit{intercept: meanY}
	}
	slope := sxy / sxx
	return linFit{slope: slope, intercept: meanY - slope*meanX}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the sample standard deviation.
func stdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	var sum2 float64
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	v := sum2 / float64(n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// dayStats computes min/max/avg strictly over original prices.
func dayStats(iv []models.PriceInterval) models.DayStats {
	if len(iv) == 0 {
		return models.DayStats{}
	}
	st := models.DayStats{Min: iv[0].Price, Max: iv[0].Price}
	sum := 0.0
	for _, p := range iv {
		if p.Price < st.Min {
			st.Min = p.Price
		}
		if p.Price > st.Max {
			st.Max = p.Price
		}
		sum += p.Price
	}
	st.Avg = sum / float64(len(iv))
	return st
}
