package search

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bootstobeats/stepfinder/internal/llm"
	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/store"
)

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
	name        string
	unavailable bool
}

func (m *mockProvider) Name() string {
	if m.name == "" {
		return "anthropic"
	}
	return m.name
}

func (m *mockProvider) Available() bool { return !m.unavailable }

func (m *mockProvider) Generate(ctx context.Context, call, instruction string) (*llm.Result, error) {
	args := m.Called(ctx, call, instruction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Result), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateSearch(ctx context.Context, req model.SearchRequest) (*model.Search, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Search), args.Error(1)
}

func (m *mockStore) UpdateSearchStatus(ctx context.Context, searchID string, status model.SearchStatus) error {
	args := m.Called(ctx, searchID, status)
	return args.Error(0)
}

func (m *mockStore) CompleteSearch(ctx context.Context, searchID string, outcome *model.SearchOutcome) error {
	args := m.Called(ctx, searchID, outcome)
	return args.Error(0)
}

func (m *mockStore) FailSearch(ctx context.Context, searchID string, message string) error {
	args := m.Called(ctx, searchID, message)
	return args.Error(0)
}

func (m *mockStore) GetSearch(ctx context.Context, searchID string) (*model.Search, error) {
	args := m.Called(ctx, searchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Search), args.Error(1)
}

func (m *mockStore) ListSearches(ctx context.Context, filter store.SearchFilter) ([]model.Search, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Search), args.Error(1)
}

func (m *mockStore) GetCachedOutcome(ctx context.Context, fingerprint string) (*model.SearchOutcome, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SearchOutcome), args.Error(1)
}

func (m *mockStore) SetCachedOutcome(ctx context.Context, fingerprint string, outcome *model.SearchOutcome, ttl time.Duration) error {
	args := m.Called(ctx, fingerprint, outcome, ttl)
	return args.Error(0)
}

func (m *mockStore) DeleteExpiredOutcomes(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var (
	_ llm.Provider = (*mockProvider)(nil)
	_ store.Store  = (*mockStore)(nil)
)
