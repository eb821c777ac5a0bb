package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-shortlink/types"
)

// MockStorage is a mock Storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) PutIfAbsent(ctx context.Context, link types.ShortLink) (types.ShortLink, error) {
	args := m.Called(ctx, link)
	if fn, ok := args.Get(0).(func(context.Context, types.ShortLink) types.ShortLink); ok {
		return fn(ctx, link), args.Error(1)
	}
	return args.Get(0).(types.ShortLink), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, id string) (types.ShortLink, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.ShortLink), args.Bool(1), args.Error(2)
}
