package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// Source represents an ingested transcript or document. The fingerprint
// is unique across all sources: a second ingest of identical bytes
// resolves to the original record.
type Source struct {
	ID          types.SourceID `json:"id"`
	Filename    string         `json:"filename"`
	Filepath    string         `json:"filepath,omitempty"`
	Content     string         `json:"content,omitempty"`
	Fingerprint string         `json:"fingerprint"`
	CallDate    *time.Time     `json:"callDate,omitempty"`
	DurationMin int            `json:"durationMinutes,omitempty"`
	Context     string         `json:"context,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	ProcessedAt *time.Time     `json:"processedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Fingerprint computes the content fingerprint used for ingest dedup
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
