package mocks

import (
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockLinkHandler struct {
	mock.Mock
}

func (m *MockLinkHandler) CreateShortLink(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) GetShortLink(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) HealthCheck(c *gin.Context) {
	m.Called(c)
}

func (m *MockLinkHandler) RateLimitMiddleware() gin.HandlerFunc {
	args := m.Called()
	return args.Get(0).(gin.HandlerFunc)
}
