package domain

import "time"

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketDone       TicketStatus = "done"
	TicketCanceled   TicketStatus = "canceled"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketDone, TicketCanceled:
		return true
	}
	return false
}

// Ticket is a maintenance order raised against an asset. ClosedAt is
// stamped the first time the ticket reaches done.
type Ticket struct {
	ID          string       `json:"id"`
	AssetID     string       `json:"assetId"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      TicketStatus `json:"status"`
	OpenedAt    time.Time    `json:"openedAt"`
	ClosedAt    *time.Time   `json:"closedAt,omitempty"`
	CostCents   int64        `json:"costCents"`
	Notes       *string      `json:"notes,omitempty"`
}

// AssetTicketCount ranks assets by how many tickets were raised against them.
type AssetTicketCount struct {
	AssetID   string `db:"asset_id" json:"assetId"`
	AssetCode string `db:"asset_code" json:"assetCode"`
	AssetName string `db:"asset_name" json:"assetName"`
	Count     int    `db:"n" json:"count"`
}
