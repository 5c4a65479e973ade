package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GammaPulse/internal/domain/models"
)

func sampleChain() models.OptionChain {
	rows := []models.OptionChainRow{
		{Strike: 19900, CEOI: 1000, PEOI: 4000, CEIV: 16, PEIV: 18, CEGamma: 0.001, PEGamma: 0.002},
		{Strike: 19950, CEOI: 2000, PEOI: 3000, CEIV: 15, PEIV: 17, CEGamma: 0.002, PEGamma: 0.002},
		{Strike: 20000, CEOI: 5000, PEOI: 5000, CEIV: 14, PEIV: 16, CEGamma: 0.003, PEGamma: 0.003},
		{Strike: 20050, CEOI: 3000, PEOI: 2000, CEIV: 15, PEIV: 17, CEGamma: 0.002, PEGamma: 0.002},
		{Strike: 20100, CEOI: 4000, PEOI: 1000, CEIV: 16, PEIV: 18, CEGamma: 0.001, PEGamma: 0.001},
	}
	return models.OptionChain{
		Symbol:    "NIFTY",
		Expiry:    "2025-03-13",
		SpotPrice: 20010,
		FetchedAt: time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC),
		Rows:      rows,
	}
}

func TestBuildSnapshot(t *testing.T) {
	c := sampleChain()
	snap, ok := BuildSnapshot(c)
	require.True(t, ok)

	assert.Equal(t, "NIFTY", snap.Symbol)
	assert.Equal(t, "2025-03-13", snap.Expiry)
	assert.Equal(t, c.FetchedAt, snap.Timestamp)
	assert.Equal(t, 20000.0, snap.ATMStrike)
	assert.Equal(t, 15.0, snap.ATMIV) // mean of 14 and 16
	assert.Equal(t, 10000.0, snap.ATMOI)
	assert.Equal(t, 15000.0, snap.CEOITotal)
	assert.Equal(t, 15000.0, snap.PEOITotal)
	assert.InDelta(t, 15.2, snap.CEIVAvg, 1e-9)
	assert.InDelta(t, 17.2, snap.PEIVAvg, 1e-9)
	// every strike sits within two of ATM here
	assert.Equal(t, 1.0, snap.GammaConcentration)
}

func TestBuildSnapshotNetGEX(t *testing.T) {
	c := models.OptionChain{
		Symbol:    "BANKNIFTY",
		Expiry:    "2025-03-13",
		SpotPrice: 100, // scale = 100*100*0.01 = 100
		Rows: []models.OptionChainRow{
			{Strike: 100, CEOI: 10, PEOI: 4, CEGamma: 0.5, PEGamma: 0.5},
		},
	}
	snap, ok := BuildSnapshot(c)
	require.True(t, ok)
	// (0.5*10 - 0.5*4) * 100 = 300
	assert.InDelta(t, 300.0, snap.NetGEX, 1e-9)
}

func TestBuildSnapshotConcentrationBand(t *testing.T) {
	rows := make([]models.OptionChainRow, 0, 9)
	for i := 0; i < 9; i++ {
		rows = append(rows, models.OptionChainRow{
			Strike:  float64(19800 + 50*i),
			CEOI:    100,
			CEGamma: 0.001,
		})
	}
	c := models.OptionChain{Symbol: "NIFTY", Expiry: "2025-03-13", SpotPrice: 20000, Rows: rows}
	snap, ok := BuildSnapshot(c)
	require.True(t, ok)
	assert.Equal(t, 20000.0, snap.ATMStrike)
	// five of nine equal-weight strikes fall inside the +/-2 band
	assert.InDelta(t, 5.0/9.0, snap.GammaConcentration, 1e-9)
}

func TestBuildSnapshotUnsortedRows(t *testing.T) {
	c := sampleChain()
	c.Rows[0], c.Rows[4] = c.Rows[4], c.Rows[0]
	snap, ok := BuildSnapshot(c)
	require.True(t, ok)
	assert.Equal(t, 20000.0, snap.ATMStrike)
}

func TestBuildSnapshotDegenerate(t *testing.T) {
	_, ok := BuildSnapshot(models.OptionChain{SpotPrice: 100})
	assert.False(t, ok, "no strikes")

	c := sampleChain()
	c.SpotPrice = 0
	_, ok = BuildSnapshot(c)
	assert.False(t, ok, "zero spot")
}

func TestPairMean(t *testing.T) {
	assert.Equal(t, 15.0, pairMean(14, 16))
	assert.Equal(t, 14.0, pairMean(14, 0))
	assert.Equal(t, 16.0, pairMean(0, 16))
	assert.Equal(t, 0.0, pairMean(0, 0))
}
