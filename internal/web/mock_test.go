package web

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/store"
)

// --- Runner Mock ---

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req model.SearchRequest) (*model.Search, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Search), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
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

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// The handlers never touch the remaining Store methods.

func (m *mockStore) CreateSearch(context.Context, model.SearchRequest) (*model.Search, error) {
	return nil, nil
}

func (m *mockStore) UpdateSearchStatus(context.Context, string, model.SearchStatus) error {
	return nil
}

func (m *mockStore) CompleteSearch(context.Context, string, *model.SearchOutcome) error { return nil }

func (m *mockStore) FailSearch(context.Context, string, string) error { return nil }

func (m *mockStore) GetCachedOutcome(context.Context, string) (*model.SearchOutcome, error) {
	return nil, nil
}

func (m *mockStore) SetCachedOutcome(context.Context, string, *model.SearchOutcome, time.Duration) error {
	return nil
}

func (m *mockStore) DeleteExpiredOutcomes(context.Context) (int, error) { return 0, nil }

func (m *mockStore) Migrate(context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

var (
	_ Runner      = (*mockRunner)(nil)
	_ store.Store = (*mockStore)(nil)
)
