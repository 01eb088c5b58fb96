// Package indicator provides the small set of technical indicators the stop
// engine and regime filter need: simple moving average and average true range
// over daily candles.
package indicator

import (
	"math"

	"github.com/mkruijs/positionbot/internal/domain"
)

// SMA returns the simple moving average of the last window closes. The second
// return value is false when there are fewer than window candles.
func SMA(candles []domain.Candle, window int) (float64, bool) {
	if window <= 0 || len(candles) < window {
		return 0, false
	}
	var sum float64
	for _, c := range candles[len(candles)-window:] {
		sum += c.Close
	}
	return sum / float64(window), true
}

// ATR returns the average true range over the last window bars, using a plain
// mean of true ranges. It needs window+1 candles because the true range of a
// bar references the previous close.
func ATR(candles []domain.Candle, window int) (float64, bool) {
	if window <= 0 || len(candles) < window+1 {
		return 0, false
	}
	start := len(candles) - window
	var sum float64
	for i := start; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1].Close)
	}
	return sum / float64(window), true
}

// ATRPercent returns the ATR expressed as a percentage of the latest close.
func ATRPercent(candles []domain.Candle, window int) (float64, bool) {
	atr, ok := ATR(candles, window)
	if !ok || len(candles) == 0 {
		return 0, false
	}
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return 0, false
	}
	return atr / last * 100, true
}

func trueRange(c domain.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if d := math.Abs(c.High - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(c.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}
