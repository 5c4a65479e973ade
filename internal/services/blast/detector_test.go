package blast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GammaPulse/internal/domain/models"
)

var testTime = time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC)

// quietCurrent is a snapshot that fires nothing against quietHistory.
func quietCurrent() models.MarketSnapshot {
	return models.MarketSnapshot{
		Timestamp:          testTime,
		Symbol:             "NIFTY",
		Expiry:             "2025-03-13",
		ATMIV:              20,
		ATMOI:              100000,
		GammaConcentration: 0.3,
		NetGEX:             5500,
		SpotPrice:          20000,
		ATMStrike:          20300,
		CEOITotal:          100000,
		PEOITotal:          100000,
		CEIVAvg:            18,
		PEIVAvg:            18,
	}
}

// quietHistory returns n snapshots, newest first. The ATM IV values have
// mean 20 and sample stddev exactly 2 when n is 10; everything else is flat
// so only deliberately perturbed fields can fire.
func quietHistory(n int) []models.MarketSnapshot {
	ivs := []float64{23, 23, 17, 17, 20, 20, 20, 20, 20, 20}
	out := make([]models.MarketSnapshot, n)
	for i := 0; i < n; i++ {
		s := quietCurrent()
		s.Timestamp = testTime.Add(-time.Duration(i+1) * 3 * time.Minute)
		s.ATMIV = ivs[i%len(ivs)]
		s.NetGEX = float64(1000 * (i + 1)) // newest-first spread, newest positive
		out[i] = s
	}
	return out
}

func TestDetectDeterministic(t *testing.T) {
	d := NewDetector()
	cur := quietCurrent()
	cur.ATMIV = 26
	cur.NetGEX = -500000
	hist := quietHistory(10)

	a := d.Detect(cur, hist)
	b := d.Detect(cur, hist)
	require.Equal(t, a, b)
}

func TestFallbackOnShortHistory(t *testing.T) {
	d := NewDetector()
	for n := 0; n < MinAdaptiveHistory; n++ {
		sig := d.Detect(quietCurrent(), quietHistory(n))
		assert.Equal(t, models.ConfidenceLow, sig.Confidence, "n=%d", n)
		assert.Equal(t, models.DirectionNeutral, sig.Direction, "n=%d", n)
		assert.Equal(t, 60, sig.TimeToBlastMin, "n=%d", n)
		assert.Equal(t, sig.Confidence, sig.RiskLevel, "n=%d", n)
	}
}

func TestFallbackBaseline(t *testing.T) {
	// Three flat snapshots: no derivative heuristic fires, probability is
	// exactly the fallback base.
	d := NewDetector()
	cur := quietCurrent()
	hist := quietHistory(3)
	for i := range hist {
		hist[i].ATMIV = 20
	}
	sig := d.Detect(cur, hist)
	assert.InDelta(t, 0.10, sig.Probability, 1e-12)
	assert.Empty(t, sig.Triggers)
	assert.Equal(t, models.ConfidenceLow, sig.Confidence)
	assert.Equal(t, models.DirectionNeutral, sig.Direction)
	assert.Equal(t, 60, sig.TimeToBlastMin)
}

func TestFallbackHeuristics(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(3)
	for i := range hist {
		hist[i].ATMIV = 20
	}

	cur := quietCurrent()
	cur.ATMIV = 20.5                 // +0.5 per step > 0.10
	cur.ATMOI = 99000                // -1000 per step < -500
	cur.GammaConcentration = 0.31    // rising
	sig := d.Detect(cur, hist)
	assert.InDelta(t, 0.10+0.15+0.30+0.20, sig.Probability, 1e-12)
	assert.Equal(t, []string{"IV Rising", "OI Unwinding", "Gamma Building"}, sig.Triggers)
	assert.Equal(t, models.ConfidenceLow, sig.Confidence)
	assert.Equal(t, models.DirectionNeutral, sig.Direction)
}

func TestIVSpikeTiersMonotonic(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)

	quiet := d.Detect(quietCurrent(), hist)
	assert.Empty(t, quiet.Triggers)
	assert.Equal(t, 0.0, quiet.Probability)

	soft := quietCurrent()
	soft.ATMIV = 24.4 // z = 2.2
	softSig := d.Detect(soft, hist)
	require.Equal(t, []string{"IV Spike (2.2σ)"}, softSig.Triggers)
	assert.InDelta(t, 0.15, softSig.Probability, 1e-12)

	hard := quietCurrent()
	hard.ATMIV = 26 // z = 3.0 against mean 20, stddev 2
	hardSig := d.Detect(hard, hist)
	require.Equal(t, []string{"IV Spike (3.0σ)"}, hardSig.Triggers)
	assert.InDelta(t, 0.25, hardSig.Probability, 1e-12)
	assert.GreaterOrEqual(t, hardSig.Probability, 0.25)

	// crossing each threshold strictly increases the aggregate, and only one
	// IV trigger ever appears
	assert.Greater(t, softSig.Probability, quiet.Probability)
	assert.Greater(t, hardSig.Probability, softSig.Probability)
}

func TestGEXFlip(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)
	gex := []float64{1000000, -600000, -700000, 3000000, 4000000, 5000000, 6000000, 7000000, 8000000, 9000000}
	for i := range hist {
		hist[i].NetGEX = gex[i]
	}
	cur := quietCurrent()
	cur.NetGEX = -500000 // latest historical is +1M: zero crossing

	sig := d.Detect(cur, hist)
	require.Contains(t, sig.Triggers, "GEX Flip Detected")
	// two of ten historical values sit at or below current: rank 20, so the
	// extreme-GEX evaluator stays silent and the flip is the only contribution
	assert.InDelta(t, 0.25, sig.Probability, 1e-12)
}

func TestGEXFlipExclusivity(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)
	cur := quietCurrent()
	cur.NetGEX = 5500 // same sign as latest historical
	sig := d.Detect(cur, hist)
	assert.NotContains(t, sig.Triggers, "GEX Flip Detected")
}

func TestPinRisk(t *testing.T) {
	d := NewDetector()
	cur := quietCurrent()
	cur.SpotPrice = 20000
	cur.ATMStrike = 20080 // 0.40% away
	sig := d.Detect(cur, quietHistory(10))
	require.Equal(t, []string{"Pin Risk (0.40%)"}, sig.Triggers)
	assert.InDelta(t, 0.10, sig.Probability, 1e-12)
}

func TestDirectionUpside(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(20)
	// three of twenty at or below current: percentile rank 15
	hist[17].NetGEX = -1000
	hist[18].NetGEX = -2000
	hist[19].NetGEX = -3000
	cur := quietCurrent()
	cur.NetGEX = 500
	cur.CEOITotal = 200000 // pcr 0.5: +3
	cur.PEOITotal = 100000 // gex support: +2, no skew: score 5

	sig := d.Detect(cur, hist)
	assert.Equal(t, models.DirectionUpside, sig.Direction)
}

func TestDirectionDownside(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)
	cur := quietCurrent()
	cur.CEOITotal = 100000
	cur.PEOITotal = 200000 // pcr 2.0: -3
	cur.NetGEX = 9500      // above nine of ten: rank 90 resistance: -2
	cur.CEIVAvg = 25
	cur.PEIVAvg = 20 // call skew: -1

	sig := d.Detect(cur, hist)
	assert.Equal(t, models.DirectionDownside, sig.Direction)
}

func TestDirectionDeadZone(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)
	cur := quietCurrent()
	cur.NetGEX = 1500 // rank 10: support +2, nothing else scores

	sig := d.Detect(cur, hist)
	assert.Equal(t, models.DirectionNeutral, sig.Direction)
}

func TestProbabilityCapped(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)
	gcs := []float64{0.33, 0.33, 0.27, 0.27, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3}
	for i := range hist {
		hist[i].GammaConcentration = gcs[i] // mean 0.3, stddev 0.02
		hist[i].NetGEX = float64(1000000 * (i + 1))
	}
	cur := quietCurrent()
	cur.ATMIV = 40                // far past the hard IV tier: +0.25
	cur.GammaConcentration = 0.36 // z = 3: +0.20
	cur.SpotPrice = 20000
	cur.ATMStrike = 20000 // 0.00%: +0.10
	cur.NetGEX = -500000  // flip +0.25 and rank 0 extreme +0.15

	sig := d.Detect(cur, hist)
	assert.InDelta(t, MaxProbability, sig.Probability, 1e-9)
	assert.LessOrEqual(t, sig.Probability, MaxProbability)
	assert.Len(t, sig.Triggers, 5)
	assert.Equal(t, models.ConfidenceCritical, sig.Confidence)
	assert.Equal(t, 3, sig.TimeToBlastMin)
	assert.Equal(t, sig.Confidence, sig.RiskLevel)
}

func TestOIAcceleration(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)
	// oldest to newest: alternating +/-100 around 100000; accelerations are a
	// stable +/-200 pattern until the current sample breaks it
	for i := range hist {
		if (len(hist)-1-i)%2 == 1 {
			hist[i].ATMOI = 100100
		}
	}

	unwind := quietCurrent()
	unwind.ATMOI = 50000
	sig := d.Detect(unwind, hist)
	require.Len(t, sig.Triggers, 1)
	assert.Contains(t, sig.Triggers[0], "OI Unwinding")
	assert.InDelta(t, 0.30, sig.Probability, 1e-12)

	buildup := quietCurrent()
	buildup.ATMOI = 150000
	sig = d.Detect(buildup, hist)
	require.Len(t, sig.Triggers, 1)
	assert.Contains(t, sig.Triggers[0], "OI Buildup")
	assert.InDelta(t, 0.20, sig.Probability, 1e-12)
}

func TestTriggerOrderFollowsEvaluators(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(10)
	cur := quietCurrent()
	cur.ATMIV = 26       // IV spike first
	cur.ATMStrike = 20050 // pin risk after it
	sig := d.Detect(cur, hist)
	require.Len(t, sig.Triggers, 2)
	assert.Contains(t, sig.Triggers[0], "IV Spike")
	assert.Contains(t, sig.Triggers[1], "Pin Risk")
}

func TestOversizedWindowTruncated(t *testing.T) {
	d := NewDetector()
	hist := quietHistory(MaxHistoryWindow + 15)
	sig := d.Detect(quietCurrent(), hist)
	assert.GreaterOrEqual(t, sig.Probability, 0.0)
	assert.LessOrEqual(t, sig.Probability, MaxProbability)
}

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		prob     float64
		triggers int
		conf     models.Confidence
		minutes  int
	}{
		{0.75, 4, models.ConfidenceCritical, 3},
		{0.75, 3, models.ConfidenceVeryHigh, 10}, // not enough triggers for CRITICAL
		{0.65, 3, models.ConfidenceVeryHigh, 10},
		{0.65, 2, models.ConfidenceHigh, 20},
		{0.41, 0, models.ConfidenceHigh, 20},
		{0.30, 0, models.ConfidenceMedium, 30},
		{0.25, 0, models.ConfidenceLow, 60},
		{0.0, 0, models.ConfidenceLow, 60},
	}
	for _, tc := range cases {
		conf, minutes := classify(tc.prob, tc.triggers)
		assert.Equal(t, tc.conf, conf, "prob=%v triggers=%d", tc.prob, tc.triggers)
		assert.Equal(t, tc.minutes, minutes, "prob=%v triggers=%d", tc.prob, tc.triggers)
	}
}

func TestMissingFieldsNeverRaise(t *testing.T) {
	d := NewDetector()
	var zero models.MarketSnapshot
	assert.NotPanics(t, func() {
		d.Detect(zero, nil)
		d.Detect(zero, make([]models.MarketSnapshot, 10))
		d.Detect(quietCurrent(), make([]models.MarketSnapshot, 20))
	})
}
