package blast

import "GammaPulse/internal/domain/models"

// classify maps aggregated probability and trigger count onto a confidence
// tier and an estimated time to blast. Rows are evaluated top to bottom;
// first match wins.
func classify(probability float64, triggerCount int) (models.Confidence, int) {
	switch {
	case probability > 0.70 && triggerCount >= 4:
		return models.ConfidenceCritical, 3
	case probability > 0.60 && triggerCount >= 3:
		return models.ConfidenceVeryHigh, 10
	case probability > 0.40:
		return models.ConfidenceHigh, 20
	case probability > 0.25:
		return models.ConfidenceMedium, 30
	default:
		return models.ConfidenceLow, 60
	}
}
