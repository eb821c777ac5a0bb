package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-shortlink/config"
)

// RegisterRoutes sets up all the routes for the short link service
// and applies CORS and, unless disabled, per-IP rate limiting.
func RegisterRoutes(r *gin.Engine, handler LinkHandlerInterface, config *config.Config) {
	r.Use(CORSMiddleware())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": methodNotAllowed})
	})

	var limited []gin.HandlerFunc
	if !config.DisableRateLimit {
		limited = append(limited, handler.RateLimitMiddleware())
	}

	v1 := r.Group("/api/v1", limited...)
	{
		short := v1.Group("/short")
		{
			short.POST("", handler.CreateShortLink)
			short.GET("/:id", handler.GetShortLink)
		}
	}

	r.GET("/health", append(limited, handler.HealthCheck)...)
}
