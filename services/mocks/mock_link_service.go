package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-shortlink/types"
)

// MockLinkService is a mock LinkService interface
type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) CreateShortLink(ctx context.Context, originalURL string) (types.ShortLink, error) {
	args := m.Called(ctx, originalURL)
	return args.Get(0).(types.ShortLink), args.Error(1)
}

func (m *MockLinkService) GetShortLink(ctx context.Context, id string) (types.ShortLink, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.ShortLink), args.Bool(1), args.Error(2)
}
