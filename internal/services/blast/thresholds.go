package blast

// Detection thresholds and contribution weights. Kept in one place so the
// adaptive and fallback paths can be audited and tuned independently.
const (
	// MinAdaptiveHistory is the window length at which the statistical path
	// becomes meaningful. Below it the fallback detector runs instead.
	MinAdaptiveHistory = 5

	// MaxHistoryWindow is the longest window the detector will consider.
	MaxHistoryWindow = 20

	// MaxProbability caps the aggregate score. A blast is never certain.
	MaxProbability = 0.95

	ivSpikeHardZ      = 2.5
	ivSpikeHardDelta  = 0.25
	ivSpikeSoftZ      = 2.0
	ivSpikeSoftDelta  = 0.15
	oiUnwindZ         = -2.0
	oiUnwindDelta     = 0.30
	oiBuildupZ        = 2.0
	oiBuildupDelta    = 0.20
	gammaClusterZ     = 2.0
	gammaClusterDelta = 0.20
	pinRiskMaxPct     = 0.5
	pinRiskDelta      = 0.10
	gexFlipDelta      = 0.25
	gexExtremeHighPct = 90.0
	gexExtremeLowPct  = 10.0
	gexExtremeDelta   = 0.15

	// Direction predictor weights and bounds (§ put/call ratio, GEX
	// positioning, IV skew).
	pcrBullishBelow    = 0.7
	pcrBearishAbove    = 1.3
	pcrWeight          = 3
	gexResistanceAbove = 75.0
	gexSupportBelow    = 25.0
	gexWeight          = 2
	ivSkewRatio        = 1.1
	ivSkewWeight       = 1
	directionDeadZone  = 3 // |score| must reach this to leave NEUTRAL

	// Fallback path: constant-rate heuristics for short windows.
	fallbackBaseProbability = 0.10
	fallbackIVRisingRate    = 0.10
	fallbackIVRisingDelta   = 0.15
	fallbackOIUnwindRate    = -500.0
	fallbackOIUnwindDelta   = 0.30
	fallbackGammaDelta      = 0.20

	// epsilon floors zero denominators in ratios.
	epsilon = 1e-9
)
