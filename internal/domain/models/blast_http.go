package models

// Requests for the blast API endpoints. Defined in domain for consistency and reuse.

type BlastRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Expiry string `query:"expiry" json:"expiry"`
	Fresh  bool   `query:"fresh" json:"fresh"` // bypass the signal cache and recompute
}

type SnapshotsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Expiry string `query:"expiry" json:"expiry"`
	N      int    `query:"n" json:"n" default:"20" validate:"gte=1,lte=500"`
}

type TopBlastsRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}
