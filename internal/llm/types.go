package llm

// Role represents the role of a message sender in a transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged message in a transcript.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for a completion request.
// System carries instructions separately from Messages so callers can
// preserve the exact transcript order of Messages.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse contains the result of a completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
