package upstox

import "time"

// ist is UTC+05:30. A fixed zone avoids depending on the host tzdata.
var ist = time.FixedZone("IST", 5*3600+30*60)

// ISTLocation returns the exchange timezone.
func ISTLocation() *time.Location { return ist }

// NSE cash/derivatives session, minutes from midnight IST.
const (
	sessionOpenMin  = 9*60 + 15  // 09:15
	sessionCloseMin = 15*60 + 30 // 15:30
)

// IsMarketOpen reports whether t falls inside the NSE trading session,
// Monday through Friday 09:15-15:30 IST. Exchange holidays are not tracked;
// the chain fetch simply returns stale data on those days.
func IsMarketOpen(t time.Time) bool {
	t = t.In(ist)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= sessionOpenMin && mins <= sessionCloseMin
}
