// Package chain aggregates a fetched put/call option chain into the compact
// per-tick MarketSnapshot the detector consumes. All functions are pure.
package chain

import (
	"math"
	"sort"

	"GammaPulse/internal/domain/models"
)

// gexScale converts summed gamma*OI into a dealer gamma exposure figure:
// per 1% spot move, in underlying notional terms.
const gexScale = 0.01

// strikeBand is the number of strikes on each side of ATM counted as "near"
// for the gamma concentration ratio.
const strikeBand = 2

// BuildSnapshot aggregates one option chain into a MarketSnapshot. ok is
// false for degenerate input: an empty chain or a non-positive spot price.
func BuildSnapshot(c models.OptionChain) (models.MarketSnapshot, bool) {
	if len(c.Rows) == 0 || !isFinite(c.SpotPrice) || c.SpotPrice <= 0 {
		return models.MarketSnapshot{}, false
	}

	rows := make([]models.OptionChainRow, len(c.Rows))
	copy(rows, c.Rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Strike < rows[j].Strike })

	atm := atmIndex(rows, c.SpotPrice)
	scale := c.SpotPrice * c.SpotPrice * gexScale

	var (
		ceOI, peOI       float64
		ceIVSum, peIVSum float64
		ceIVN, peIVN     int
		netGEX           float64
		absGEX, nearGEX  float64
	)
	for i, r := range rows {
		ceOI += r.CEOI
		peOI += r.PEOI
		if r.CEIV > 0 {
			ceIVSum += r.CEIV
			ceIVN++
		}
		if r.PEIV > 0 {
			peIVSum += r.PEIV
			peIVN++
		}
		g := (r.CEGamma*r.CEOI - r.PEGamma*r.PEOI) * scale
		if !isFinite(g) {
			continue
		}
		netGEX += g
		absGEX += math.Abs(g)
		if i >= atm-strikeBand && i <= atm+strikeBand {
			nearGEX += math.Abs(g)
		}
	}

	concentration := 0.0
	if absGEX > 0 {
		concentration = nearGEX / absGEX
	}

	atmRow := rows[atm]
	return models.MarketSnapshot{
		Timestamp:          c.FetchedAt,
		Symbol:             c.Symbol,
		Expiry:             c.Expiry,
		ATMIV:              pairMean(atmRow.CEIV, atmRow.PEIV),
		ATMOI:              atmRow.CEOI + atmRow.PEOI,
		GammaConcentration: concentration,
		NetGEX:             netGEX,
		SpotPrice:          c.SpotPrice,
		ATMStrike:          atmRow.Strike,
		CEOITotal:          ceOI,
		PEOITotal:          peOI,
		CEIVAvg:            safeMean(ceIVSum, ceIVN),
		PEIVAvg:            safeMean(peIVSum, peIVN),
	}, true
}

// atmIndex returns the index of the strike nearest to spot. Ties resolve to
// the lower strike. Rows must be sorted by strike.
func atmIndex(rows []models.OptionChainRow, spot float64) int {
	best := 0
	bestDist := math.Abs(rows[0].Strike - spot)
	for i := 1; i < len(rows); i++ {
		d := math.Abs(rows[i].Strike - spot)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// pairMean averages the call and put legs, ignoring a missing (zero) side.
func pairMean(ce, pe float64) float64 {
	switch {
	case ce > 0 && pe > 0:
		return (ce + pe) / 2
	case ce > 0:
		return ce
	case pe > 0:
		return pe
	default:
		return 0
	}
}

func safeMean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
