package rules

import (
	"bytes"
	"encoding/json"
)

// Condition is the structured form of a rule's condition payload. Rules
// extracted by the model carry free-form JSON; when it matches this shape
// the rule can be evaluated mechanically, otherwise it is kept as an
// opaque payload and only the text form is shown.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"` // equals, not_equals, contains, gte, lte
	Value    string `json:"value"`
}

// Action is the structured form of a rule's action payload.
type Action struct {
	Field string `json:"field"`
	SetTo string `json:"set_to"`
}

var validOperators = map[string]bool{
	"equals":     true,
	"not_equals": true,
	"contains":   true,
	"gte":        true,
	"lte":        true,
}

// ParseCondition decodes a condition payload into its structured form.
// The second return is false when the payload does not match the known
// shape; callers treat such payloads as opaque.
func ParseCondition(raw json.RawMessage) (Condition, bool) {
	var c Condition
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return c, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Condition{}, false
	}
	if c.Field == "" || !validOperators[c.Operator] {
		return Condition{}, false
	}
	return c, true
}

// ParseAction decodes an action payload into its structured form.
func ParseAction(raw json.RawMessage) (Action, bool) {
	var a Action
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return a, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return Action{}, false
	}
	if a.Field == "" {
		return Action{}, false
	}
	return a, true
}

// normalizePayload returns a valid JSON object for storage. Empty or
// invalid payloads are stored as "{}" so reads never have to deal with
// malformed JSON coming back out of the database.
func normalizePayload(raw json.RawMessage) string {
	if len(raw) == 0 || !json.Valid(raw) {
		return "{}"
	}
	return string(raw)
}
