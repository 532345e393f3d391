package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// ContextSource is a single record consulted to answer a query
type ContextSource struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Visualization describes a UI widget the frontend may render for a
// query response, e.g. a MEDDPICC scorecard.
type Visualization struct {
	Type   string         `json:"type"`
	Title  string         `json:"title,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	DealID types.DealID   `json:"dealId,omitempty"`
}

// QueryHistoryEntry records every query invocation, including failures
type QueryHistoryEntry struct {
	ID        types.QueryID     `json:"id"`
	Query     string            `json:"query"`
	Intent    types.QueryIntent `json:"intent"`
	Response  string            `json:"response,omitempty"`
	Sources   []ContextSource   `json:"sources,omitempty"`
	LatencyMS int64             `json:"latencyMs"`
	Feedback  string            `json:"feedback,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
