package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/rules"
	"github.com/addestra-labs/addestra/internal/training"
)

// handleSearchRules searches active rules by free text.
func (s *Server) handleSearchRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := request.GetInt("limit", 10)

	found, err := s.rules.Search(ctx, s.tenantID, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(found) == 0 {
		return mcp.NewToolResultText("No matching rules."), nil
	}

	return mcp.NewToolResultText(formatRules(found)), nil
}

// handleListCorrections lists recent corrections with optional filters.
func (s *Server) handleListCorrections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := corrections.ListFilter{
		Module:     request.GetString("module", ""),
		EntityType: request.GetString("entity_type", ""),
		Limit:      request.GetInt("limit", 20),
	}

	list, err := s.corrections.List(ctx, s.tenantID, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No corrections recorded."), nil
	}

	return mcp.NewToolResultText(formatCorrections(list)), nil
}

// handleGetConversation returns a conversation's transcript.
func (s *Server) handleGetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: conversation_id"), nil
	}

	conv, err := s.conversations.GetWithMessages(ctx, s.tenantID, id)
	if errors.Is(err, training.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("conversation %q not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatConversation(conv)), nil
}

func formatRules(list []*rules.Rule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d rule(s):\n", len(list))
	for i, r := range list {
		fmt.Fprintf(&sb, "\n--- Rule %d ---\n", i+1)
		fmt.Fprintf(&sb, "Name: %s\nModule: %s\n", r.Name, r.Module)
		fmt.Fprintf(&sb, "When: %s\nThen: %s\n", r.ConditionText, r.ActionText)
		fmt.Fprintf(&sb, "Confidence: %.2f, used %d time(s)", r.Confidence, r.UsageCount)
		if r.UsageCount > 0 {
			fmt.Fprintf(&sb, ", %.0f%% accepted", r.SuccessRate*100)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatCorrections(list []corrections.Correction) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d correction(s):\n", len(list))
	for _, c := range list {
		fmt.Fprintf(&sb, "\n[%s] %s %s: %s changed from %q to %q",
			c.Module, c.EntityType, c.EntityID, c.FieldPath, c.OriginalValue, c.CorrectedValue)
		if c.RuleSummary != "" {
			fmt.Fprintf(&sb, " (%s)", c.RuleSummary)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatConversation(conv *training.Conversation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation %s (%s, %s)\n", conv.ID, conv.Module, conv.Status)
	if conv.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", conv.Title)
	}
	if conv.EntityID != "" {
		fmt.Fprintf(&sb, "Entity: %s\n", conv.EntityID)
	}
	for _, m := range conv.Messages {
		fmt.Fprintf(&sb, "\n[%d] %s: %s\n", m.Seq, m.Role, m.Content)
	}
	return sb.String()
}
