package domain

// GroupCount is one bucket of a GROUP BY count. Key is nil for rows
// where the grouped column is NULL.
type GroupCount struct {
	Key   *string `db:"k" json:"key"`
	Count int     `db:"n" json:"count"`
}

// Overview is the back-office dashboard: asset distribution, loans and
// open work.
type Overview struct {
	Assets         int            `json:"assets"`
	AssetsByStatus map[string]int `json:"assetsByStatus"`
	ByCategory     []GroupCount   `json:"byCategory"`
	ByLocation     []GroupCount   `json:"byLocation"`
	Outstanding    int            `json:"outstandingAssignments"`
	Overdue        int            `json:"overdueAssignments"`
	OpenTickets    int            `json:"openTickets"`
	AuditsByStatus map[string]int `json:"auditsByStatus"`
}

// MaintenanceMonth totals tickets opened in one calendar month.
type MaintenanceMonth struct {
	Year           int   `json:"year"`
	Month          int   `json:"month"`
	Open           int   `json:"open"`
	Done           int   `json:"done"`
	TotalCostCents int64 `json:"totalCostCents"`
}
