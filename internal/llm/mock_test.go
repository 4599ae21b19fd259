package llm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bootstobeats/stepfinder/pkg/anthropic"
	"github.com/bootstobeats/stepfinder/pkg/perplexity"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Perplexity Mock ---

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

// Interface guards.
var (
	_ anthropic.Client  = (*mockAnthropicClient)(nil)
	_ perplexity.Client = (*mockPerplexityClient)(nil)
)
