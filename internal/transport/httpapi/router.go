package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetroad/pricingservice/internal/ratelimit"
)

// NewRouter wires the pricing routes and middleware. A nil limiter disables throttling.
func NewRouter(h *Handler, requestTimeout time.Duration, limiter ratelimit.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestContext(), Tracing(), AccessLog(), Timeout(requestTimeout))

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	v1 := r.Group("/v1/pricing")
	if limiter != nil {
		v1.Use(RateLimit(limiter))
	}
	v1.POST("/evaluate", h.Evaluate)
	v1.POST("/scenarios", h.Scenarios)

	return r
}
