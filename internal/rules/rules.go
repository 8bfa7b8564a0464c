// Package rules stores condition→action automation rules generalized from
// training conversations.
package rules

import (
	"encoding/json"
	"time"
)

// AutoConfidence is the confidence assigned to every rule created from a
// training conversation. It is a fixed starting point, not a computed
// score; only usage feedback moves a rule's standing afterwards.
const AutoConfidence = 0.7

// Rule is a tenant-owned automation rule.
type Rule struct {
	ID                   string          `json:"id"`
	TenantID             string          `json:"tenant_id"`
	Module               string          `json:"module"`
	Name                 string          `json:"name"`
	ConditionText        string          `json:"condition_text"`
	ConditionPayload     json.RawMessage `json:"condition_payload"`
	ActionText           string          `json:"action_text"`
	ActionPayload        json.RawMessage `json:"action_payload"`
	Priority             int             `json:"priority"`
	Confidence           float64         `json:"confidence"`
	UsageCount           int             `json:"usage_count"`
	SuccessCount         int             `json:"success_count"`
	SuccessRate          float64         `json:"success_rate"`
	Active               bool            `json:"active"`
	SourceConversationID string          `json:"source_conversation_id,omitempty"`
	CreatedBy            string          `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ListFilter controls which rules are returned by List.
type ListFilter struct {
	Module string
	Active *bool
	Limit  int
	Offset int
}

// UsageStats summarizes rule usage for a tenant. Used by the stats aggregator.
type UsageStats struct {
	Total       int     `json:"total"`
	ActiveCount int     `json:"active"`
	UsageCount  int     `json:"usage_count"`
	SuccessRate float64 `json:"success_rate"`
}
