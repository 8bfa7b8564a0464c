// Package corrections records user corrections to automated output. Each
// correction is born inside a training conversation and is immutable once
// written; it is the raw training signal that rules are generalized from.
package corrections

import "time"

// Correction is a single recorded override of a previously automated value.
type Correction struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	TenantID       string    `json:"tenant_id"`
	Module         string    `json:"module"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	FieldPath      string    `json:"field_path"`
	OriginalValue  string    `json:"original_value"`
	CorrectedValue string    `json:"corrected_value"`
	RuleSummary    string    `json:"rule_summary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListFilter controls which corrections are returned by List.
type ListFilter struct {
	Module     string
	EntityType string
	EntityID   string
	Since      *time.Time
	Limit      int
	Offset     int
}
