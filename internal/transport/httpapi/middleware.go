package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/ratelimit"
	"github.com/fleetroad/pricingservice/internal/tracing"
)

const (
	headerRequestID      = "X-Request-ID"
	headerFleetAccountID = "X-Fleet-Account-ID"
)

// RequestContext attaches a request ID and caller identifiers to the request context.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		ctx := log.WithRequestID(c.Request.Context(), requestID)
		if fleetID := c.GetHeader(headerFleetAccountID); fleetID != "" {
			ctx = log.WithFleetAccountID(ctx, fleetID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Tracing opens a server span per request.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartSpan(c.Request.Context(), "HTTP "+c.Request.Method+" "+c.FullPath())
		defer span.End()

		if traceID := tracing.GetTraceID(ctx); traceID != "" {
			ctx = log.WithTraceID(ctx, traceID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccessLog logs request completion and records request metrics.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.Error(ctx, "HTTP request failed", fields...)
		case status >= 400:
			log.Warn(ctx, "HTTP request rejected", fields...)
		default:
			log.Info(ctx, "HTTP request completed", fields...)
		}
	}
}

// Timeout bounds the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimit throttles each caller per route. Callers are keyed by fleet account,
// falling back to the client IP. Limiter errors let the request through.
func RateLimit(limiter ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		caller := c.GetHeader(headerFleetAccountID)
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}

		allowed, err := limiter.Allow(ctx, caller+":"+c.FullPath())
		if err != nil {
			log.Warn(ctx, "Rate limit check failed, allowing request", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.RecordError("RATE_LIMITED", "httpapi")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errorBody{
				Code:    "RATE_LIMITED",
				Message: "rate limit exceeded",
			}})
			return
		}
		c.Next()
	}
}
