package domain

import "time"

// Assignment is one checkout of an asset to a user. It is outstanding
// until ReturnedAt is set; an asset has at most one outstanding assignment.
type Assignment struct {
	ID           string     `json:"id"`
	AssetID      string     `json:"assetId"`
	UserID       string     `json:"userId"`
	AssignedAt   time.Time  `json:"assignedAt"`
	DueAt        *time.Time `json:"dueAt,omitempty"`
	ReturnedAt   *time.Time `json:"returnedAt,omitempty"`
	ConditionOut *string    `json:"conditionOut,omitempty"`
	ConditionIn  *string    `json:"conditionIn,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

func (a Assignment) Outstanding() bool { return a.ReturnedAt == nil }

// Overdue reports whether a is still out past its due time.
func (a Assignment) Overdue(now time.Time) bool {
	return a.ReturnedAt == nil && a.DueAt != nil && a.DueAt.Before(now)
}
