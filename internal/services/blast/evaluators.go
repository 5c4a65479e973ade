package blast

import (
	"fmt"
	"math"

	"GammaPulse/internal/domain/models"
)

// An evaluator inspects the current snapshot against the history window and
// either fires with a probability contribution and a human-readable trigger
// label, or stays silent. Evaluation order is fixed; trigger ordering on the
// emitted signal follows it.
type evaluator func(current models.MarketSnapshot, hist []models.MarketSnapshot) (delta float64, label string, fired bool)

// adaptiveEvaluators run in this exact order in the adaptive path.
var adaptiveEvaluators = []evaluator{
	evalIVSpike,
	evalOIAcceleration,
	evalGammaConcentration,
	evalPinRisk,
	evalGEXFlip,
	evalGEXExtreme,
}

// histSeries extracts one field from the newest-first history window and
// returns it oldest to newest, skipping non-finite values.
func histSeries(hist []models.MarketSnapshot, field func(models.MarketSnapshot) float64) []float64 {
	vals := make([]float64, 0, len(hist))
	for _, s := range hist {
		v := field(s)
		if !isFinite(v) {
			continue
		}
		vals = append(vals, v)
	}
	return reversed(vals)
}

// evalIVSpike fires when the current ATM IV deviates sharply from its recent
// baseline. Only the higher tier fires when both thresholds are crossed.
func evalIVSpike(current models.MarketSnapshot, hist []models.MarketSnapshot) (float64, string, bool) {
	series := histSeries(hist, func(s models.MarketSnapshot) float64 { return s.ATMIV })
	z, ok := ZScore(current.ATMIV, series)
	if !ok {
		return 0, "", false
	}
	switch {
	case z >= ivSpikeHardZ:
		return ivSpikeHardDelta, fmt.Sprintf("IV Spike (%.1fσ)", z), true
	case z >= ivSpikeSoftZ:
		return ivSpikeSoftDelta, fmt.Sprintf("IV Spike (%.1fσ)", z), true
	}
	return 0, "", false
}

// evalOIAcceleration scores the second derivative of ATM open interest.
// The acceleration series is rebuilt from consecutive triples of the window
// (history plus current), and the latest acceleration is z-scored against the
// earlier ones. A rapid unwind carries more weight than a buildup.
func evalOIAcceleration(current models.MarketSnapshot, hist []models.MarketSnapshot) (float64, string, bool) {
	series := histSeries(hist, func(s models.MarketSnapshot) float64 { return s.ATMOI })
	if isFinite(current.ATMOI) {
		series = append(series, current.ATMOI)
	}
	accels := SecondDerivative(series)
	if len(accels) < 2 {
		return 0, "", false
	}
	latest := accels[len(accels)-1]
	z, ok := ZScore(latest, accels[:len(accels)-1])
	if !ok {
		return 0, "", false
	}
	switch {
	case z <= oiUnwindZ:
		return oiUnwindDelta, fmt.Sprintf("OI Unwinding (%.1fσ)", z), true
	case z >= oiBuildupZ:
		return oiBuildupDelta, fmt.Sprintf("OI Buildup (%.1fσ)", z), true
	}
	return 0, "", false
}

// evalGammaConcentration fires when gamma exposure clusters unusually hard
// around the ATM strike.
func evalGammaConcentration(current models.MarketSnapshot, hist []models.MarketSnapshot) (float64, string, bool) {
	series := histSeries(hist, func(s models.MarketSnapshot) float64 { return s.GammaConcentration })
	z, ok := ZScore(current.GammaConcentration, series)
	if !ok || z < gammaClusterZ {
		return 0, "", false
	}
	return gammaClusterDelta, fmt.Sprintf("Gamma Clustering (%.1fσ)", z), true
}

// evalPinRisk is the one non-statistical evaluator: spot sitting on top of
// the ATM strike raises pin/hedging churn risk.
func evalPinRisk(current models.MarketSnapshot, _ []models.MarketSnapshot) (float64, string, bool) {
	if !isFinite(current.SpotPrice) || !isFinite(current.ATMStrike) || current.SpotPrice <= 0 {
		return 0, "", false
	}
	distancePct := math.Abs(current.SpotPrice-current.ATMStrike) / current.SpotPrice * 100
	if distancePct >= pinRiskMaxPct {
		return 0, "", false
	}
	return pinRiskDelta, fmt.Sprintf("Pin Risk (%.2f%%)", distancePct), true
}

// evalGEXFlip fires when net dealer gamma exposure crossed zero since the
// immediately preceding sample.
func evalGEXFlip(current models.MarketSnapshot, hist []models.MarketSnapshot) (float64, string, bool) {
	if len(hist) == 0 {
		return 0, "", false
	}
	prev := hist[0].NetGEX // newest historical sample
	if !isFinite(current.NetGEX) || !isFinite(prev) {
		return 0, "", false
	}
	if current.NetGEX*prev >= 0 {
		return 0, "", false
	}
	return gexFlipDelta, "GEX Flip Detected", true
}

// evalGEXExtreme fires at either tail of the historical GEX distribution:
// extreme positive GEX acts as resistance, extreme negative as support.
// The two tails are mutually exclusive.
func evalGEXExtreme(current models.MarketSnapshot, hist []models.MarketSnapshot) (float64, string, bool) {
	series := histSeries(hist, func(s models.MarketSnapshot) float64 { return s.NetGEX })
	rank, ok := PercentileRank(current.NetGEX, series)
	if !ok {
		return 0, "", false
	}
	if rank > gexExtremeHighPct || rank < gexExtremeLowPct {
		return gexExtremeDelta, fmt.Sprintf("Extreme GEX (%.0fth percentile)", rank), true
	}
	return 0, "", false
}
