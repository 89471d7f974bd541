package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Completion), args.Error(1)
}

// funcBackend adapts a function to Backend.
type funcBackend func(ctx context.Context, req Request) (Completion, error)

func (f funcBackend) Name() string { return "func" }

func (f funcBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	return f(ctx, req)
}
