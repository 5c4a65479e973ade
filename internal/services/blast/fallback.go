package blast

import "GammaPulse/internal/domain/models"

// detectFallback is the constant-threshold heuristic used when the window is
// too short for the adaptive statistics to mean anything. It degrades
// gracefully instead of refusing to answer: direction stays NEUTRAL and
// confidence stays LOW so a thin baseline can never produce a high-conviction
// signal.
func detectFallback(current models.MarketSnapshot, hist []models.MarketSnapshot) models.GammaBlastSignal {
	probability := fallbackBaseProbability
	var triggers []string

	if v, ok := latestVelocity(current, hist, func(s models.MarketSnapshot) float64 { return s.ATMIV }); ok && v > fallbackIVRisingRate {
		probability += fallbackIVRisingDelta
		triggers = append(triggers, "IV Rising")
	}
	if v, ok := latestVelocity(current, hist, func(s models.MarketSnapshot) float64 { return s.ATMOI }); ok && v < fallbackOIUnwindRate {
		probability += fallbackOIUnwindDelta
		triggers = append(triggers, "OI Unwinding")
	}
	if v, ok := latestVelocity(current, hist, func(s models.MarketSnapshot) float64 { return s.GammaConcentration }); ok && v > 0 {
		probability += fallbackGammaDelta
		triggers = append(triggers, "Gamma Building")
	}

	if probability > MaxProbability {
		probability = MaxProbability
	}

	return models.GammaBlastSignal{
		Symbol:         current.Symbol,
		Expiry:         current.Expiry,
		Timestamp:      current.Timestamp,
		Probability:    probability,
		Direction:      models.DirectionNeutral,
		Confidence:     models.ConfidenceLow,
		TimeToBlastMin: 60,
		Triggers:       triggers,
		RiskLevel:      models.ConfidenceLow,
	}
}

// latestVelocity returns the most recent per-step change of one field across
// history plus the current snapshot. ok is false with fewer than two usable
// points.
func latestVelocity(current models.MarketSnapshot, hist []models.MarketSnapshot, field func(models.MarketSnapshot) float64) (float64, bool) {
	series := histSeries(hist, field)
	if v := field(current); isFinite(v) {
		series = append(series, v)
	}
	diffs := FirstDerivative(series)
	if len(diffs) == 0 {
		return 0, false
	}
	return diffs[len(diffs)-1], true
}
