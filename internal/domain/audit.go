package domain

import "time"

type AuditStatus string

const (
	AuditDraft      AuditStatus = "draft"
	AuditInProgress AuditStatus = "in_progress"
	AuditFinalized  AuditStatus = "finalized"
)

// Next reports the only status an audit may move to from s.
// Finalized is terminal.
func (s AuditStatus) Next() (AuditStatus, bool) {
	switch s {
	case AuditDraft:
		return AuditInProgress, true
	case AuditInProgress:
		return AuditFinalized, true
	}
	return "", false
}

func (s AuditStatus) Valid() bool {
	switch s {
	case AuditDraft, AuditInProgress, AuditFinalized:
		return true
	}
	return false
}

// Label is the display form used by templates ("In progress").
func (s AuditStatus) Label() string {
	switch s {
	case AuditDraft:
		return "Draft"
	case AuditInProgress:
		return "In progress"
	case AuditFinalized:
		return "Finalized"
	}
	return string(s)
}

type Audit struct {
	ID          string      `json:"id"`
	LocationID  *string     `json:"locationId,omitempty"`
	Title       string      `json:"title"`
	Status      AuditStatus `json:"status"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	FinalizedAt *time.Time  `json:"finalizedAt,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// AuditItem records one asset's expected-vs-found state within one audit.
// Found is true exactly when ScannedAt is set.
type AuditItem struct {
	ID              string     `json:"id"`
	AuditID         string     `json:"auditId"`
	AssetID         string     `json:"assetId"`
	Found           bool       `json:"found"`
	FoundLocationID *string    `json:"foundLocationId"`
	Condition       *string    `json:"condition"`
	Notes           *string    `json:"notes"`
	ScannedAt       *time.Time `json:"scannedAt"`
}

// AuditItemView is an item joined with its asset for listings.
type AuditItemView struct {
	AuditItem
	AssetCode          string  `json:"assetCode"`
	AssetName          string  `json:"assetName"`
	ExpectedLocationID *string `json:"expectedLocationId"`
}

type Progress struct {
	Total   int `json:"total"`
	Found   int `json:"found"`
	Percent int `json:"percent"`
}

type Mismatch struct {
	AssetID            string  `json:"assetId"`
	AssetCode          string  `json:"assetCode"`
	AssetName          string  `json:"assetName"`
	ExpectedLocationID *string `json:"expectedLocationId"`
	FoundLocationID    *string `json:"foundLocationId"`
}

type Summary struct {
	Progress
	Mismatches []Mismatch `json:"mismatches"`
}
