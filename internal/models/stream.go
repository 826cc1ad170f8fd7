package models

// Stream event types.
const (
	EventProgress = "progress"
	EventContent  = "content"
	EventComplete = "complete"
	EventError    = "error"
)

// Progress statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// StreamEvent is one frame of the staged chat stream. Progress events carry
// Step/Total/Status/Message; content, complete and error events carry
// Content and Done.
type StreamEvent struct {
	Type    string `json:"type"`
	Step    int    `json:"step,omitempty"`
	Total   int    `json:"total,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
}
