package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockGenerator is a mock Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(length int) string {
	args := m.Called(length)
	return args.String(0)
}
