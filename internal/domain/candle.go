package domain

// Candle is one daily OHLCV bar.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Panel maps ticker to its daily candle history, oldest first.
type Panel map[string][]Candle

// LastClose returns the most recent close for ticker, or false when the
// ticker is absent or has no candles.
func (p Panel) LastClose(ticker string) (float64, bool) {
	candles, ok := p[ticker]
	if !ok || len(candles) == 0 {
		return 0, false
	}
	return candles[len(candles)-1].Close, true
}
