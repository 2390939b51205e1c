package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/pricing"
)

type errorBody struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Details       string `json:"details,omitempty"`
	ScenarioIndex *int   `json:"scenarioIndex,omitempty"`
}

// writeError maps pricing errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		metrics.RecordError(body.Code, "httpapi")
		log.Error(c.Request.Context(), "Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func errorResponse(err error) (int, errorBody) {
	if pe := pricing.GetError(err); pe != nil {
		body := errorBody{Code: pe.Code, Message: pe.Message, Details: pe.Details}
		if pe.Index >= 0 {
			idx := pe.Index
			body.ScenarioIndex = &idx
		}
		return statusFor(pe.Code), body
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Code: "TIMEOUT", Message: "request timeout"}
	case errors.Is(err, context.Canceled):
		return 499, errorBody{Code: "CANCELED", Message: "request canceled"}
	}
	return http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal server error"}
}

func statusFor(code string) int {
	switch code {
	case pricing.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case pricing.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case pricing.ErrCodeNotFound:
		return http.StatusNotFound
	case pricing.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, details string) {
	writeError(c, pricing.NewInvalidRequestError(details))
}
