package blast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GammaPulse/internal/domain/models"
)

func TestPinRiskBoundary(t *testing.T) {
	cur := models.MarketSnapshot{SpotPrice: 20000, ATMStrike: 20100} // exactly 0.50%
	_, _, fired := evalPinRisk(cur, nil)
	assert.False(t, fired, "boundary distance must not fire")

	cur.ATMStrike = 20090 // 0.45%
	delta, label, fired := evalPinRisk(cur, nil)
	require.True(t, fired)
	assert.Equal(t, pinRiskDelta, delta)
	assert.Equal(t, "Pin Risk (0.45%)", label)

	// just inside the boundary still fires, and the label rounds up
	cur.ATMStrike = 20099 // 0.495%
	_, label, fired = evalPinRisk(cur, nil)
	require.True(t, fired)
	assert.Equal(t, "Pin Risk (0.50%)", label)
}

func TestGEXExtremeTails(t *testing.T) {
	hist := quietHistory(10) // NetGEX 1000..10000

	low := quietCurrent()
	low.NetGEX = 500 // below everything: rank 0
	delta, label, fired := evalGEXExtreme(low, hist)
	require.True(t, fired)
	assert.Equal(t, gexExtremeDelta, delta)
	assert.Equal(t, "Extreme GEX (0th percentile)", label)

	high := quietCurrent()
	high.NetGEX = 20000 // above everything: rank 100
	_, label, fired = evalGEXExtreme(high, hist)
	require.True(t, fired)
	assert.Equal(t, "Extreme GEX (100th percentile)", label)

	mid := quietCurrent()
	mid.NetGEX = 9000 // rank exactly 90 sits inside the closed band
	_, _, fired = evalGEXExtreme(mid, hist)
	assert.False(t, fired)
}

func TestGEXFlipNeedsHistory(t *testing.T) {
	cur := quietCurrent()
	cur.NetGEX = -1
	_, _, fired := evalGEXFlip(cur, nil)
	assert.False(t, fired)
}

func TestIVSpikeSingleTier(t *testing.T) {
	hist := quietHistory(10)
	cur := quietCurrent()
	cur.ATMIV = 30 // z = 5, far past both thresholds
	delta, label, fired := evalIVSpike(cur, hist)
	require.True(t, fired)
	assert.Equal(t, ivSpikeHardDelta, delta, "only the higher tier contributes")
	assert.Equal(t, "IV Spike (5.0σ)", label)
}
