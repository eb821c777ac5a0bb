// Package handlers provides HTTP request handlers for the short link service.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-shortlink/config"
	"go-shortlink/services"
	"go-shortlink/types"
)

const (
	invalidJSONBody    = "Invalid JSON body"
	invalidURLProvided = "Invalid or missing URL"
	idCollision        = "ID collision, please retry"
	storeUnavailable   = "Link store unavailable"
	shortLinkNotFound  = "Short link not found"
	errorTimeout       = "Request timed out"
	errorCreatingLink  = "Error creating short link"
	errorRetrieving    = "Error retrieving short link"
	methodNotAllowed   = "Method Not Allowed"
	internalError      = "Internal server error"
)

// LinkHandlerInterface defines the methods that a link handler should implement.
type LinkHandlerInterface interface {
	CreateShortLink(c *gin.Context)
	GetShortLink(c *gin.Context)
	HealthCheck(c *gin.Context)
	RateLimitMiddleware() gin.HandlerFunc
}

// handleError maps service errors onto status codes and a JSON error payload.
func (h *LinkHandler) handleError(c *gin.Context, err error, fallback string) {
	var statusCode int
	var errorMessage string

	switch {
	case errors.Is(err, services.ErrInvalidURL):
		statusCode = http.StatusUnprocessableEntity
		errorMessage = invalidURLProvided
	case errors.Is(err, services.ErrIDConflict), errors.Is(err, services.ErrRetriesExhausted):
		h.logger.Warn("Short link id allocation failed", zap.Error(err))
		statusCode = http.StatusConflict
		errorMessage = idCollision
	case errors.Is(err, services.ErrStoreUnavailable):
		h.logger.Error("Link store unavailable", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errorMessage = storeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		statusCode = http.StatusRequestTimeout
		errorMessage = errorTimeout
	default:
		h.logger.Error("Unexpected error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errorMessage = fallback
		if errorMessage == "" {
			errorMessage = internalError
		}
	}

	c.JSON(statusCode, gin.H{"error": errorMessage})
}

// LinkHandler struct holds the dependencies for handling short link requests.
type LinkHandler struct {
	service services.LinkService
	config  *config.Config
	logger  *zap.Logger
}

// NewLinkHandler creates and returns a new LinkHandler instance.
func NewLinkHandler(ctx context.Context, service services.LinkService, cfg *config.Config, logger *zap.Logger) (LinkHandlerInterface, error) {
	if service == nil {
		return nil, errors.New("service cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if !cfg.DisableRateLimit && (cfg.RateLimit <= 0 || cfg.RatePeriod <= 0) {
		return nil, errors.New("invalid rate limit configuration")
	}

	handler := &LinkHandler{
		service: service,
		config:  cfg,
		logger:  logger,
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return handler, nil
}

// CreateShortLink handles the creation of a new short link.
// The body carries the target under url, link or link_og.
func (h *LinkHandler) CreateShortLink(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	// An empty body decodes to no URL and fails validation.
	var input types.LinkRequest
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Info("Error decoding request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidJSONBody})
		return
	}

	link, err := h.service.CreateShortLink(ctx, input.OriginalURL())
	if err != nil {
		h.handleError(c, err, errorCreatingLink)
		return
	}

	c.JSON(http.StatusCreated, types.NewShortLinkResponse(link))
}

// GetShortLink returns the stored short link for an id.
func (h *LinkHandler) GetShortLink(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RequestTimeout)
	defer cancel()

	id := c.Param("id")

	link, found, err := h.service.GetShortLink(ctx, id)
	if err != nil {
		h.handleError(c, err, errorRetrieving)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": shortLinkNotFound})
		return
	}

	c.JSON(http.StatusOK, types.NewShortLinkResponse(link))
}
