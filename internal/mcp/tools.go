package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchRulesTool defines the search_rules MCP tool.
var searchRulesTool = mcp.NewTool("search_rules",
	mcp.WithDescription("Search the tenant's active automation rules by name, condition or action text."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Text to search for"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)

// listCorrectionsTool defines the list_corrections MCP tool.
var listCorrectionsTool = mcp.NewTool("list_corrections",
	mcp.WithDescription("List recent corrections HR operators made to automated output."),
	mcp.WithString("module",
		mcp.Description("Filter by module"),
		mcp.Enum("attendance", "payslip", "safety", "onboarding", "leaves", "expenses", "disciplinary"),
	),
	mcp.WithString("entity_type",
		mcp.Description("Filter by corrected entity type"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 20)"),
	),
)

// getConversationTool defines the get_conversation MCP tool.
var getConversationTool = mcp.NewTool("get_conversation",
	mcp.WithDescription("Get a training conversation with its full transcript."),
	mcp.WithString("conversation_id",
		mcp.Required(),
		mcp.Description("Conversation ID"),
	),
)
