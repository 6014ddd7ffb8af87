// Package feeds defines the source adapter contract consumed by the data
// integration hub, plus HTTP adapter implementations for the supported
// providers. Adapters normalize provider payloads into small typed rows and
// own their response caching; the hub never calls Fetch more than once per
// sync cycle.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SourceKind tags the section of integrated data a source feeds into
type SourceKind string

const (
	KindProjections SourceKind = "projections"
	KindSentiment   SourceKind = "sentiment"
	KindOdds        SourceKind = "odds"
	KindInjuries    SourceKind = "injuries"
	KindUnknown     SourceKind = "unknown"
)

// ErrSourceUnavailable indicates the provider reported itself down or
// unreachable before a fetch was attempted.
var ErrSourceUnavailable = errors.New("source unavailable")

// FetchError wraps a provider failure with the source that produced it
type FetchError struct {
	SourceID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SourceAdapter is the contract every provider integration must satisfy
type SourceAdapter interface {
	// ID returns the unique source identifier used for metrics and merging
	ID() string
	// Kind reports which integrated-data section this source feeds
	Kind() SourceKind
	// IsAvailable reports whether the provider is reachable and serving
	IsAvailable(ctx context.Context) bool
	// Fetch retrieves and normalizes the provider's current payload
	Fetch(ctx context.Context) (*SourceData, error)
}

// SourceData is one normalized fetch result, tagged by kind. Exactly one
// section is populated for known kinds; Raw carries unrecognized payloads.
type SourceData struct {
	SourceID    string          `json:"source_id"`
	Kind        SourceKind      `json:"kind"`
	FetchedAt   time.Time       `json:"fetched_at"`
	Projections []ProjectionRow `json:"projections,omitempty"`
	Sentiment   []SentimentRow  `json:"sentiment,omitempty"`
	Odds        []OddsRow       `json:"odds,omitempty"`
	Injuries    []InjuryRow     `json:"injuries,omitempty"`
	Raw         map[string]any  `json:"raw,omitempty"`
}

// ProjectionRow is one subject's normalized statistical projections
type ProjectionRow struct {
	EntityID  string             `json:"entity_id"`
	Stats     map[string]float64 `json:"stats"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SentimentRow is one subject's normalized social sentiment reading
type SentimentRow struct {
	EntityID string   `json:"entity_id"`
	Score    float64  `json:"score"`
	Volume   int      `json:"volume"`
	Trending bool     `json:"trending"`
	Keywords []string `json:"keywords,omitempty"`
}

// OddsRow is one market's normalized selection prices
type OddsRow struct {
	MarketID string             `json:"market_id"`
	Markets  map[string]float64 `json:"markets"`
}

// InjuryRow is one subject's normalized injury/roster status
type InjuryRow struct {
	EntityID string  `json:"entity_id"`
	Status   string  `json:"status"`
	Detail   string  `json:"detail,omitempty"`
	Impact   float64 `json:"impact"`
	Timeline string  `json:"timeline,omitempty"`
}
