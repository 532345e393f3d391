package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// LivingSection is a cached AI artifact identified by
// (entityType, entityID, sectionType). DataHash fingerprints the inputs
// that produced Content; Stale drives stale-while-revalidate reads.
type LivingSection struct {
	EntityType  types.EntityType  `json:"entityType"`
	EntityID    string            `json:"entityId"`
	SectionType types.SectionType `json:"sectionType"`
	Content     string            `json:"content"`
	DataHash    string            `json:"dataHash"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Stale       bool              `json:"stale"`
}

// SectionResult is what Get returns to callers, carrying the
// stale-while-revalidate flags alongside the content.
type SectionResult struct {
	Content      string    `json:"content"`
	GeneratedAt  time.Time `json:"generatedAt"`
	IsStale      bool      `json:"isStale"`
	IsRefreshing bool      `json:"isRefreshing"`
}
