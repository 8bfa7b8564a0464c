package training

import (
	"fmt"
	"strings"

	"github.com/addestra-labs/addestra/internal/memory"
)

// moduleDescriptions give the model domain framing per module tag.
var moduleDescriptions = map[string]string{
	ModuleAttendance:   "attendance tracking: clock-ins, shifts, lateness and absence handling",
	ModulePayslip:      "payslip generation: salary items, allowances, deductions and rounding",
	ModuleSafety:       "workplace safety: incident reports, trainings and compliance deadlines",
	ModuleOnboarding:   "employee onboarding: document collection, contract setup and checklists",
	ModuleLeaves:       "leave management: vacation balances, approvals and carry-over",
	ModuleExpenses:     "expense reports: receipts, reimbursement limits and approvals",
	ModuleDisciplinary: "disciplinary procedures: warnings, escalation steps and records",
}

// buildSystemPrompt assembles the turn instructions: domain framing, the
// conversation's entity context, similar past corrections, and the strict
// JSON response contract the parser expects.
func buildSystemPrompt(conv *Conversation, similar []memory.Result) string {
	var b strings.Builder

	b.WriteString("You are a training assistant for an HR management platform. ")
	b.WriteString("An HR operator is reviewing automated output with you and teaching you the organization's conventions.\n\n")
	fmt.Fprintf(&b, "Current module: %s (%s).\n", conv.Module, moduleDescriptions[conv.Module])
	if conv.EntityID != "" {
		fmt.Fprintf(&b, "The conversation concerns entity %s.\n", conv.EntityID)
	}
	if ctx := string(conv.ContextData); ctx != "" && ctx != "{}" {
		fmt.Fprintf(&b, "Additional context for this case:\n%s\n", ctx)
	}

	if len(similar) > 0 {
		b.WriteString("\nCorrections this organization made in similar cases before:\n")
		for _, r := range similar {
			fmt.Fprintf(&b, "- %s\n", r.Content)
		}
		b.WriteString("Stay consistent with these unless the operator says otherwise.\n")
	}

	b.WriteString(`
Respond with a single JSON object and nothing else:
{
  "reply": "your answer to the operator, in their language",
  "function_call": null or {"name": "...", "arguments": {...}} if a platform action should run,
  "function_result": null or the expected outcome of that action,
  "correction": null, or when the operator corrected a concrete value:
    {"entity_type": "...", "entity_id": "...", "field_path": "...",
     "original_value": "...", "corrected_value": "...", "rule_summary": "one sentence"},
  "rule": null, or when the correction generalizes to future cases:
    {"name": "...", "condition_text": "...", "condition_payload": {"field": "...", "operator": "equals|not_equals|contains|gte|lte", "value": "..."},
     "action_text": "...", "action_payload": {"field": "...", "set_to": "..."}, "priority": 0}
}
Only emit a correction when the operator explicitly corrected a value.
Only emit a rule when the correction clearly applies beyond this one case.`)

	return b.String()
}
