package models

import "time"

// SpotTick is one spot-price update from the live market feed.
type SpotTick struct {
	Symbol        string    `json:"symbol"`
	InstrumentKey string    `json:"instrument_key"`
	Price         float64   `json:"price"`
	Timestamp     time.Time `json:"timestamp"`
}

// ScanJob asks the scanner to evaluate one (symbol, expiry) chain. Jobs are
// carried over the Redis scan queue.
type ScanJob struct {
	Symbol string `json:"symbol"`
	Expiry string `json:"expiry"`
}
