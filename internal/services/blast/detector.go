// Package blast implements the adaptive gamma blast detector: a pure,
// deterministic function from a rolling window of market snapshots to an
// early-warning signal. Six statistical evaluators score deviation in
// volatility, open-interest dynamics, and dealer gamma positioning; their
// contributions aggregate into a blast probability with a predicted
// direction, confidence tier, and estimated time to event. Short windows
// fall back to a fixed-threshold heuristic.
//
// The detector performs no I/O, holds no state across calls, and never
// fails: malformed or missing inputs lower the score, they do not raise.
// It is safe to call concurrently for different instruments.
package blast

import "GammaPulse/internal/domain/models"

// Detector computes gamma blast signals. The zero value is ready to use.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector { return &Detector{} }

// Detect evaluates the current snapshot against its history window and
// returns a fresh signal. History must be ordered newest first, as returned
// by the snapshot store; windows longer than MaxHistoryWindow are truncated.
// With fewer than MinAdaptiveHistory samples the fallback heuristic runs
// instead of the adaptive path.
func (d *Detector) Detect(current models.MarketSnapshot, history []models.MarketSnapshot) models.GammaBlastSignal {
	if len(history) > MaxHistoryWindow {
		history = history[:MaxHistoryWindow]
	}
	if len(history) < MinAdaptiveHistory {
		return detectFallback(current, history)
	}

	probability := 0.0
	triggers := make([]string, 0, len(adaptiveEvaluators))
	for _, eval := range adaptiveEvaluators {
		delta, label, fired := eval(current, history)
		if !fired {
			continue
		}
		probability += delta
		triggers = append(triggers, label)
	}
	if probability > MaxProbability {
		probability = MaxProbability
	}

	direction := predictDirection(current, history)
	confidence, timeToBlast := classify(probability, len(triggers))

	return models.GammaBlastSignal{
		Symbol:         current.Symbol,
		Expiry:         current.Expiry,
		Timestamp:      current.Timestamp,
		Probability:    probability,
		Direction:      direction,
		Confidence:     confidence,
		TimeToBlastMin: timeToBlast,
		Triggers:       triggers,
		RiskLevel:      confidence,
	}
}
