package interfaces

import "time"

// AssetMapping lists the assets uploaded for one published document.
type AssetMapping struct {
	DocID     string          `json:"docId"`
	ShareID   string          `json:"shareId"`
	Assets    []UploadedAsset `json:"assets"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ShareRecord is the local copy of a share acknowledged by the registry.
// There is at most one record per document.
type ShareRecord struct {
	ShareID         string    `json:"shareId"`
	DocID           string    `json:"docId"`
	DocTitle        string    `json:"docTitle"`
	ShareURL        string    `json:"shareUrl"`
	RequirePassword bool      `json:"requirePassword"`
	IsPublic        bool      `json:"isPublic"`
	ExpireAt        time.Time `json:"expireAt"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Expired reports whether the record expired at or before now. A zero
// expiry never expires.
func (r ShareRecord) Expired(now time.Time) bool {
	return !r.ExpireAt.IsZero() && !r.ExpireAt.After(now)
}
