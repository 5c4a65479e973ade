package models

import "time"

// Direction is the predicted direction of a gamma blast.
type Direction string

const (
	DirectionUpside   Direction = "UPSIDE"
	DirectionDownside Direction = "DOWNSIDE"
	DirectionNeutral  Direction = "NEUTRAL"
)

// Confidence is the tier assigned to a blast signal.
type Confidence string

const (
	ConfidenceCritical Confidence = "CRITICAL"
	ConfidenceVeryHigh Confidence = "VERY_HIGH"
	ConfidenceHigh     Confidence = "HIGH"
	ConfidenceMedium   Confidence = "MEDIUM"
	ConfidenceLow      Confidence = "LOW"
)

// GammaBlastSignal is the detector output for one (symbol, expiry) at one
// point in time. It is computed fresh on every invocation and never mutated;
// downstream layers persist or render the fields verbatim.
type GammaBlastSignal struct {
	Symbol    string    `json:"symbol"`
	Expiry    string    `json:"expiry"`
	Timestamp time.Time `json:"timestamp"`

	Probability    float64    `json:"probability"` // clamped to [0, 0.95]
	Direction      Direction  `json:"direction"`
	Confidence     Confidence `json:"confidence"`
	TimeToBlastMin int        `json:"time_to_blast_min"`
	Triggers       []string   `json:"triggers"`
	RiskLevel      Confidence `json:"risk_level"` // mirrors Confidence, kept for downstream compatibility
}
