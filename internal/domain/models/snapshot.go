package models

import "time"

// MarketSnapshot captures the state of one option chain at one sampling tick.
// All numeric fields are expected to be finite; the detector treats NaN or
// missing values as "signal cannot fire", it never rejects a snapshot.
type MarketSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Expiry    string    `json:"expiry"` // YYYY-MM-DD

	ATMIV              float64 `json:"atm_iv"`              // at-the-money implied volatility, percent
	ATMOI              float64 `json:"atm_oi"`              // open interest at the ATM strike
	GammaConcentration float64 `json:"gamma_concentration"` // fraction of gamma exposure near ATM, 0..1
	NetGEX             float64 `json:"net_gex"`             // signed dealer gamma exposure
	SpotPrice          float64 `json:"spot_price"`
	ATMStrike          float64 `json:"atm_strike"`

	CEOITotal float64 `json:"ce_oi_total"`
	PEOITotal float64 `json:"pe_oi_total"`
	CEIVAvg   float64 `json:"ce_iv_avg"`
	PEIVAvg   float64 `json:"pe_iv_avg"`
}

// OptionChainRow is one strike of a fetched put/call chain. Greeks come from
// the broker API; this service does not compute them.
type OptionChainRow struct {
	Strike     float64 `json:"strike"`
	CEOI       float64 `json:"ce_oi"`
	PEOI       float64 `json:"pe_oi"`
	CEChgOI    float64 `json:"ce_chg_oi"`
	PEChgOI    float64 `json:"pe_chg_oi"`
	CEIV       float64 `json:"ce_iv"`
	PEIV       float64 `json:"pe_iv"`
	CELTP      float64 `json:"ce_ltp"`
	PELTP      float64 `json:"pe_ltp"`
	CEVolume   float64 `json:"ce_volume"`
	PEVolume   float64 `json:"pe_volume"`
	CEGamma    float64 `json:"ce_gamma"`
	PEGamma    float64 `json:"pe_gamma"`
	CEDelta    float64 `json:"ce_delta"`
	PEDelta    float64 `json:"pe_delta"`
}

// OptionChain is the full fetched chain for one (symbol, expiry).
type OptionChain struct {
	Symbol    string
	Expiry    string
	SpotPrice float64
	FetchedAt time.Time
	Rows      []OptionChainRow
}
