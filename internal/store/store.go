package store

import (
	"context"
	"time"

	"github.com/bootstobeats/stepfinder/internal/model"
)

// SearchFilter specifies criteria for listing searches.
type SearchFilter struct {
	Status       model.SearchStatus `json:"status,omitempty"`
	Song         string             `json:"song,omitempty"`
	CreatedAfter time.Time          `json:"created_after,omitempty"`
	Limit        int                `json:"limit,omitempty"`
	Offset       int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the search flow.
type Store interface {
	// Searches
	CreateSearch(ctx context.Context, req model.SearchRequest) (*model.Search, error)
	UpdateSearchStatus(ctx context.Context, searchID string, status model.SearchStatus) error
	CompleteSearch(ctx context.Context, searchID string, outcome *model.SearchOutcome) error
	FailSearch(ctx context.Context, searchID string, message string) error
	// GetSearch returns (nil, nil) when no search has the given ID.
	GetSearch(ctx context.Context, searchID string) (*model.Search, error)
	ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error)

	// Outcome cache, keyed by request fingerprint. Getters return
	// (nil, nil) on a miss or an expired entry.
	GetCachedOutcome(ctx context.Context, fingerprint string) (*model.SearchOutcome, error)
	SetCachedOutcome(ctx context.Context, fingerprint string, outcome *model.SearchOutcome, ttl time.Duration) error
	DeleteExpiredOutcomes(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
