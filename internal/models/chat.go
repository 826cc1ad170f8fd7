package models

// ChatMessage represents a single turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoints.
type ChatRequest struct {
	Message  string        `json:"message"`
	Language string        `json:"language"`
	History  []ChatMessage `json:"history"`
}

// ChatResponse is the aggregated answer for a chat request. Data is capped
// at 100 rows on this path; the details endpoint returns the full set.
type ChatResponse struct {
	Response string           `json:"response"`
	SQL      *string          `json:"sql,omitempty"`
	Data     []map[string]any `json:"data,omitempty"`
}

// GeneratedQuery is the strict two-field contract the model must satisfy.
// SQL is nil for conversational replies and for any transport or parse
// failure; an explanation is always present.
type GeneratedQuery struct {
	SQL         *string `json:"sql"`
	Explanation string  `json:"explanation"`
}

// QueryRequest is the payload for the direct query endpoint.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// DetailRequest asks for the uncapped table view of a previously generated
// query. The SQL is re-validated before execution.
type DetailRequest struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
	Language string `json:"language"`
}

type DetailResponse struct {
	Response     string           `json:"response"`
	TotalRecords int              `json:"total_records"`
	Data         []map[string]any `json:"data"`
}

type SuggestionRequest struct {
	PartialInput        string   `json:"partial_input"`
	Language            string   `json:"language"`
	ConversationContext []string `json:"conversation_context"`
}

type SuggestionResponse struct {
	Suggestions []string `json:"suggestions"`
}
