package audit

import "time"

// TrailType classifies an audited mutation.
type TrailType string

const (
	TrailCreate TrailType = "Create"
	TrailUpdate TrailType = "Update"
	TrailDelete TrailType = "Delete"
)

// Trail is a point-in-time record of one aggregate mutation. It is built
// synchronously during a save and never mutated after emission.
type Trail struct {
	TableName      string                 `json:"table_name"`
	Type           TrailType              `json:"trail_type"`
	OldValues      map[string]interface{} `json:"old_values,omitempty"`
	NewValues      map[string]interface{} `json:"new_values,omitempty"`
	ChangedColumns []string               `json:"changed_columns,omitempty"`
	KeyValues      map[string]interface{} `json:"key_values"`
	UserID         uint                   `json:"user_id"`
	TenantID       string                 `json:"tenant_id"`
	Timestamp      time.Time              `json:"timestamp"`
}

func newTrail(table string, trailType TrailType, userID uint, tenantID string, at time.Time) *Trail {
	return &Trail{
		TableName:      table,
		Type:           trailType,
		OldValues:      make(map[string]interface{}),
		NewValues:      make(map[string]interface{}),
		ChangedColumns: make([]string, 0),
		KeyValues:      make(map[string]interface{}),
		UserID:         userID,
		TenantID:       tenantID,
		Timestamp:      at,
	}
}
