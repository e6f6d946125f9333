package model

// APIKind tags the provider family of a tracked call.
type APIKind string

const (
	APIKindSearch APIKind = "brave"
	APIKindLLM    APIKind = "llm"
)

// APICall is one tracked external call and its cost. Search calls carry
// Query and NumResults; LLM calls carry the token counts.
type APICall struct {
	Timestamp    string  `json:"timestamp"`
	APIType      APIKind `json:"api_type"`
	Query        string  `json:"query,omitempty"`
	NumResults   int     `json:"num_results,omitempty"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
	InputCost    float64 `json:"input_cost,omitempty"`
	OutputCost   float64 `json:"output_cost,omitempty"`
	Cost         float64 `json:"cost"`
}

// UsageStatus is a snapshot of the current ledger session.
type UsageStatus struct {
	SessionID              string    `json:"session_id"`
	Model                  string    `json:"model"`
	StartTime              string    `json:"start_time"`
	InputTokens            int       `json:"input_tokens"`
	OutputTokens           int       `json:"output_tokens"`
	SearchQueries          int       `json:"search_queries"`
	SearchResultsTruncated int       `json:"search_results_truncated"`
	TotalAPICalls          int       `json:"total_api_calls"`
	InputCost              float64   `json:"input_cost"`
	OutputCost             float64   `json:"output_cost"`
	SearchCost             float64   `json:"brave_cost"`
	CurrentCost            float64   `json:"current_cost"`
	Calls                  []APICall `json:"api_calls_breakdown"`
}

// SessionRecord is the line appended to the usage log when a session is
// saved.
type SessionRecord struct {
	SessionID              string    `json:"session_id"`
	Model                  string    `json:"model"`
	StartTime              string    `json:"start_time"`
	EndTime                string    `json:"end_time"`
	InputTokens            int       `json:"input_tokens"`
	OutputTokens           int       `json:"output_tokens"`
	SearchQueries          int       `json:"search_queries"`
	SearchResultsTruncated int       `json:"search_results_truncated"`
	TotalAPICalls          int       `json:"total_api_calls"`
	InputCost              float64   `json:"input_cost"`
	OutputCost             float64   `json:"output_cost"`
	SearchCost             float64   `json:"brave_cost"`
	TotalCost              float64   `json:"total_cost"`
	Calls                  []APICall `json:"api_calls"`
}
