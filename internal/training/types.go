// Package training implements the conversation-based training pipeline:
// HR staff chat with the assistant about a case, correct its output, and
// every confirmed correction is generalized into a reusable rule.
package training

import (
	"encoding/json"
	"time"

	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/rules"
)

// Modules a conversation can be about. These mirror the product areas of
// the HR suite; the tag scopes prompts, corrections and rules.
const (
	ModuleAttendance   = "attendance"
	ModulePayslip      = "payslip"
	ModuleSafety       = "safety"
	ModuleOnboarding   = "onboarding"
	ModuleLeaves       = "leaves"
	ModuleExpenses     = "expenses"
	ModuleDisciplinary = "disciplinary"
)

var validModules = map[string]bool{
	ModuleAttendance:   true,
	ModulePayslip:      true,
	ModuleSafety:       true,
	ModuleOnboarding:   true,
	ModuleLeaves:       true,
	ModuleExpenses:     true,
	ModuleDisciplinary: true,
}

// ValidModule reports whether m is a known module tag.
func ValidModule(m string) bool { return validModules[m] }

// Conversation statuses.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
	StatusArchived = "archived"
)

var validStatuses = map[string]bool{
	StatusActive:   true,
	StatusResolved: true,
	StatusArchived: true,
}

// ValidStatus reports whether s is a known conversation status.
func ValidStatus(s string) bool { return validStatuses[s] }

// Conversation is a training session between a user and the assistant,
// scoped to one tenant and one module.
type Conversation struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Title       string          `json:"title"`
	Module      string          `json:"module"`
	EntityID    string          `json:"entity_id,omitempty"`
	ContextData json.RawMessage `json:"context_data"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Messages    []Message       `json:"messages,omitempty"`
}

// Message is a single immutable transcript entry. Seq is assigned on
// insert and defines transcript order.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int       `json:"seq"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	FunctionCall   string    `json:"function_call,omitempty"`
	FunctionResult string    `json:"function_result,omitempty"`
	TokenCount     int       `json:"token_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListFilter controls which conversations List returns.
type ListFilter struct {
	Module string
	Status string
	Limit  int
	Offset int
}

// TurnResult is everything one processed turn produced.
type TurnResult struct {
	UserMessage      *Message                `json:"user_message"`
	AssistantMessage *Message                `json:"assistant_message"`
	Correction       *corrections.Correction `json:"correction"`
	Rule             *rules.Rule             `json:"rule"`
}
