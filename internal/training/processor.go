package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/db"
	"github.com/addestra-labs/addestra/internal/llm"
	"github.com/addestra-labs/addestra/internal/memory"
	"github.com/addestra-labs/addestra/internal/rules"
)

var (
	// ErrEmptyContent is returned for a blank user message. Nothing is
	// persisted and no completion is requested.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrUpstream wraps completion failures. The user message is already
	// durable when this surfaces; the turn can simply be retried.
	ErrUpstream = errors.New("completion provider failed")
)

// ProcessorConfig tunes a Processor.
type ProcessorConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	MemoryLimit int // similar corrections pulled into the prompt
}

// Processor runs one training turn: persist the user message, ask the
// model, and record the reply with any correction and rule it carries.
type Processor struct {
	db            *db.DB
	conversations *Store
	corrections   *corrections.Store
	rules         *rules.Store
	memory        *memory.Store // nil disables retrieval
	provider      llm.Provider
	cfg           ProcessorConfig
}

func NewProcessor(database *db.DB, conversations *Store, corrStore *corrections.Store,
	ruleStore *rules.Store, provider llm.Provider, mem *memory.Store, cfg ProcessorConfig) *Processor {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.MemoryLimit == 0 {
		cfg.MemoryLimit = 5
	}
	return &Processor{
		db:            database,
		conversations: conversations,
		corrections:   corrStore,
		rules:         ruleStore,
		memory:        mem,
		provider:      provider,
		cfg:           cfg,
	}
}

// ProcessMessage runs a single synchronous turn. The user message is made
// durable before the completion call; on upstream failure it is the only
// thing written. Sending the same content twice produces two turns.
func (p *Processor) ProcessMessage(ctx context.Context, ident auth.Identity, conversationID, content string) (*TurnResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	conv, err := p.conversations.GetWithMessages(ctx, ident.TenantID, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &Message{
		ConversationID: conv.ID,
		Role:           "user",
		Content:        content,
	}
	if err := p.conversations.AppendMessage(ctx, p.db, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	var similar []memory.Result
	if p.memory != nil {
		similar, err = p.memory.SearchSimilar(ctx, ident.TenantID, content, p.cfg.MemoryLimit)
		if err != nil {
			log.Printf("Correction memory lookup failed: %v", err)
			similar = nil
		}
	}

	req := llm.CompletionRequest{
		Model:       p.cfg.Model,
		System:      buildSystemPrompt(conv, similar),
		Messages:    transcript(conv.Messages, *userMsg),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		JSONMode:    true,
	}
	resp, err := p.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	turn, err := parseTurn(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable response: %v", ErrUpstream, err)
	}

	assistantMsg := &Message{
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        turn.Reply,
		FunctionCall:   rawString(turn.FunctionCall),
		FunctionResult: rawString(turn.FunctionResult),
		TokenCount:     resp.OutputTokens,
	}

	var correction *corrections.Correction
	var rule *rules.Rule
	err = p.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := p.conversations.AppendMessage(ctx, tx, assistantMsg); err != nil {
			return fmt.Errorf("failed to persist assistant message: %w", err)
		}

		if turn.Correction != nil {
			c, err := p.corrections.Create(ctx, tx, corrections.Correction{
				ConversationID: conv.ID,
				TenantID:       ident.TenantID,
				Module:         conv.Module,
				EntityType:     turn.Correction.EntityType,
				EntityID:       turn.Correction.EntityID,
				FieldPath:      turn.Correction.FieldPath,
				OriginalValue:  turn.Correction.OriginalValue,
				CorrectedValue: turn.Correction.CorrectedValue,
				RuleSummary:    turn.Correction.RuleSummary,
			})
			if err != nil {
				return fmt.Errorf("failed to record correction: %w", err)
			}
			correction = c
		}

		if turn.Rule != nil {
			rule = &rules.Rule{
				TenantID:             ident.TenantID,
				Module:               conv.Module,
				Name:                 turn.Rule.Name,
				ConditionText:        turn.Rule.ConditionText,
				ConditionPayload:     turn.Rule.ConditionPayload,
				ActionText:           turn.Rule.ActionText,
				ActionPayload:        turn.Rule.ActionPayload,
				Priority:             turn.Rule.Priority,
				Confidence:           rules.AutoConfidence,
				SourceConversationID: conv.ID,
				CreatedBy:            ident.UserID,
			}
			if err := p.rules.Create(ctx, tx, rule); err != nil {
				return fmt.Errorf("failed to record rule: %w", err)
			}
		}

		return p.conversations.Touch(ctx, tx, conv.ID)
	})
	if err != nil {
		return nil, err
	}

	if p.memory != nil && correction != nil {
		if err := p.memory.Add(ctx, memory.Entry{
			ID:             correction.ID,
			TenantID:       correction.TenantID,
			Module:         correction.Module,
			EntityType:     correction.EntityType,
			EntityID:       correction.EntityID,
			FieldPath:      correction.FieldPath,
			OriginalValue:  correction.OriginalValue,
			CorrectedValue: correction.CorrectedValue,
			RuleSummary:    correction.RuleSummary,
		}); err != nil {
			log.Printf("Failed to index correction %s: %v", correction.ID, err)
		}
	}

	return &TurnResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Correction:       correction,
		Rule:             rule,
	}, nil
}

// transcript converts the stored history plus the new user message into
// provider messages, preserving sequence order.
func transcript(history []Message, latest Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		out = append(out, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	out = append(out, llm.Message{Role: llm.RoleUser, Content: latest.Content})
	return out
}

type correctionPayload struct {
	EntityType     string `json:"entity_type"`
	EntityID       string `json:"entity_id"`
	FieldPath      string `json:"field_path"`
	OriginalValue  string `json:"original_value"`
	CorrectedValue string `json:"corrected_value"`
	RuleSummary    string `json:"rule_summary"`
}

type rulePayload struct {
	Name             string          `json:"name"`
	ConditionText    string          `json:"condition_text"`
	ConditionPayload json.RawMessage `json:"condition_payload"`
	ActionText       string          `json:"action_text"`
	ActionPayload    json.RawMessage `json:"action_payload"`
	Priority         int             `json:"priority"`
}

type turnPayload struct {
	Reply          string             `json:"reply"`
	FunctionCall   json.RawMessage    `json:"function_call"`
	FunctionResult json.RawMessage    `json:"function_result"`
	Correction     *correctionPayload `json:"correction"`
	Rule           *rulePayload       `json:"rule"`
}

// parseTurn decodes the model's JSON reply. Models occasionally wrap the
// object in a code fence or prose even in JSON mode, so it falls back to
// the outermost braces before giving up.
func parseTurn(content string) (*turnPayload, error) {
	content = strings.TrimSpace(content)

	var turn turnPayload
	if err := json.Unmarshal([]byte(content), &turn); err == nil {
		return normalizeTurn(&turn), nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &turn); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return normalizeTurn(&turn), nil
}

// normalizeTurn drops payloads the model filled with empty shells so the
// transaction only writes records that carry real data.
func normalizeTurn(turn *turnPayload) *turnPayload {
	if turn.Correction != nil && turn.Correction.FieldPath == "" {
		turn.Correction = nil
	}
	if turn.Rule != nil && (turn.Rule.Name == "" || turn.Rule.ConditionText == "" || turn.Rule.ActionText == "") {
		turn.Rule = nil
	}
	return turn
}

// rawString renders an optional JSON fragment for storage, mapping JSON
// null to the empty string.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return s
}
