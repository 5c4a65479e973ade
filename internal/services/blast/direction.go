package blast

import (
	"math"

	"GammaPulse/internal/domain/models"
)

// predictDirection runs the multi-factor direction scorer. It is independent
// of the probability score and always runs in adaptive mode. Scores inside
// the open interval (-deadZone, deadZone) resolve to NEUTRAL; the dead zone
// is deliberate, not a tie-break accident.
func predictDirection(current models.MarketSnapshot, hist []models.MarketSnapshot) models.Direction {
	score := 0

	// Put/call open-interest ratio: heavy call OI reads bullish, heavy put
	// OI bearish.
	if isFinite(current.CEOITotal) && isFinite(current.PEOITotal) {
		pcr := current.PEOITotal / math.Max(current.CEOITotal, epsilon)
		if pcr < pcrBullishBelow {
			score += pcrWeight
		} else if pcr > pcrBearishAbove {
			score -= pcrWeight
		}
	}

	// GEX positioning: exposure stacked above spot acts as resistance,
	// below as support.
	series := histSeries(hist, func(s models.MarketSnapshot) float64 { return s.NetGEX })
	if rank, ok := PercentileRank(current.NetGEX, series); ok {
		if rank > gexResistanceAbove {
			score -= gexWeight
		} else if rank < gexSupportBelow {
			score += gexWeight
		}
	}

	// IV skew: richer calls than puts leans bearish and vice versa.
	if isFinite(current.CEIVAvg) && isFinite(current.PEIVAvg) {
		if current.CEIVAvg > current.PEIVAvg*ivSkewRatio {
			score -= ivSkewWeight
		} else if current.PEIVAvg > current.CEIVAvg*ivSkewRatio {
			score += ivSkewWeight
		}
	}

	switch {
	case score >= directionDeadZone:
		return models.DirectionUpside
	case score <= -directionDeadZone:
		return models.DirectionDownside
	default:
		return models.DirectionNeutral
	}
}
