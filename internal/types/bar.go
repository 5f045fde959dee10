package types

import "time"

// Bar is one OHLCV bar of market data for a single symbol.
type Bar struct {
	Time   time.Time `yaml:"time" csv:"time"`
	Symbol string    `yaml:"symbol" csv:"symbol"`
	Open   float64   `yaml:"open" csv:"open"`
	High   float64   `yaml:"high" csv:"high"`
	Low    float64   `yaml:"low" csv:"low"`
	Close  float64   `yaml:"close" csv:"close"`
	Volume float64   `yaml:"volume" csv:"volume"`
}

// Day returns the bar's timestamp truncated to its calendar day in UTC.
func (b Bar) Day() time.Time {
	return b.Time.UTC().Truncate(24 * time.Hour)
}
