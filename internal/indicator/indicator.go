// Package indicator computes technical indicators from a full price series.
// All functions are pure and re-derive their value from the whole series on
// every call; a series shorter than the required window returns nil rather
// than a fabricated value.
package indicator

import (
	"math"

	"coinsentry/internal/models"
)

const (
	RSIWindow       = 14
	BollingerWindow = 20
	BollingerK      = 2.0
)

// RSI returns the Wilder-style smoothed Relative Strength Index.
//
// Gains and losses are smoothed with an exponential mean of center-of-mass
// window−1 (alpha = 1/window), seeded from the zero placeholder that
// precedes the first delta. When the average loss is exactly zero the
// relative strength is treated as infinite and RSI saturates to 100.
func RSI(prices []float64, window int) *float64 {
	if window < 1 || len(prices) < window+1 {
		return nil
	}

	alpha := 1.0 / float64(window)
	var avgGain, avgLoss float64
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (1-alpha)*avgGain + alpha*gain
		avgLoss = (1-alpha)*avgLoss + alpha*loss
	}

	if avgLoss == 0 {
		v := 100.0
		return &v
	}
	rs := avgGain / avgLoss
	v := 100.0 - 100.0/(1.0+rs)
	return &v
}

// EMA returns the exponential moving average with span = window
// (alpha = 2/(window+1)), seeded by the first sample with no warm-up bias
// adjustment.
func EMA(prices []float64, window int) *float64 {
	if window < 1 || len(prices) < window {
		return nil
	}

	alpha := 2.0 / float64(window+1)
	ema := prices[0]
	for i := 1; i < len(prices); i++ {
		ema = (1-alpha)*ema + alpha*prices[i]
	}
	return &ema
}

// Bollinger returns the envelope of the simple moving average over the
// trailing window, ± k sample standard deviations over the same window.
func Bollinger(prices []float64, window int, k float64) *models.Bands {
	if window < 2 || len(prices) < window {
		return nil
	}

	tail := prices[len(prices)-window:]
	var sum float64
	for _, p := range tail {
		sum += p
	}
	mean := sum / float64(window)

	var sq float64
	for _, p := range tail {
		d := p - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(window-1))

	return &models.Bands{
		Upper:  mean + k*std,
		Middle: mean,
		Lower:  mean - k*std,
	}
}

// PercentChange returns the percent change from the sample n positions
// before the end of the series (inclusive of the latest sample, so n=7
// spans six intervals) to the latest sample. Nil when the series is too
// short or the reference price is not positive.
func PercentChange(prices []float64, n int) *float64 {
	if n < 1 || len(prices) < n {
		return nil
	}
	ref := prices[len(prices)-n]
	if ref <= 0 {
		return nil
	}
	v := (prices[len(prices)-1] - ref) / ref * 100.0
	return &v
}
