package upstox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func istTime(hour, min int) time.Time {
	// 2025-03-12 is a Wednesday
	return time.Date(2025, 3, 12, hour, min, 0, 0, ISTLocation())
}

func TestIsMarketOpen(t *testing.T) {
	assert.False(t, IsMarketOpen(istTime(9, 14)))
	assert.True(t, IsMarketOpen(istTime(9, 15)))
	assert.True(t, IsMarketOpen(istTime(12, 0)))
	assert.True(t, IsMarketOpen(istTime(15, 30)))
	assert.False(t, IsMarketOpen(istTime(15, 31)))
	assert.False(t, IsMarketOpen(istTime(20, 0)))
}

func TestIsMarketOpenWeekend(t *testing.T) {
	saturday := time.Date(2025, 3, 15, 11, 0, 0, 0, ISTLocation())
	assert.False(t, IsMarketOpen(saturday))
}

func TestIsMarketOpenConvertsZone(t *testing.T) {
	// 05:00 UTC is 10:30 IST, inside the session
	utc := time.Date(2025, 3, 12, 5, 0, 0, 0, time.UTC)
	assert.True(t, IsMarketOpen(utc))
}
