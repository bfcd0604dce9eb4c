package domain

import "time"

type Category struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	CreatedAt   string  `db:"created_at" json:"createdAt"`
	UpdatedAt   string  `db:"updated_at" json:"updatedAt"`
}

// Location is a storage place. ParentID forms a tree; edits that would close a cycle are refused.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AssetStatus string

const (
	AssetActive      AssetStatus = "active"
	AssetInactive    AssetStatus = "inactive"
	AssetLost        AssetStatus = "lost"
	AssetRetired     AssetStatus = "retired"
	AssetMaintenance AssetStatus = "maintenance"
)

// Asset is a tracked physical item. LocationID is where it is expected to be.
type Asset struct {
	ID         string      `json:"id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	CategoryID *string     `json:"categoryId,omitempty"`
	LocationID *string     `json:"locationId,omitempty"`
	Status     AssetStatus `json:"status"`
	SerialNo   *string     `json:"serialNo,omitempty"`
	Notes      *string     `json:"notes,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}
