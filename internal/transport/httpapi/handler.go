package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/events"
	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/pricing"
)

// Handler serves the pricing API.
type Handler struct {
	engine    *pricing.Engine
	harness   *pricing.Harness
	rules     pricing.RuleRepository
	publisher events.Publisher
}

// NewHandler creates a handler. A nil publisher disables quote audit events.
func NewHandler(engine *pricing.Engine, rules pricing.RuleRepository, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Handler{
		engine:    engine,
		harness:   pricing.NewHarness(engine),
		rules:     rules,
		publisher: publisher,
	}
}

// Evaluate handles POST /v1/pricing/evaluate.
func (h *Handler) Evaluate(c *gin.Context) {
	var body EvaluateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, fmt.Sprintf("malformed body: %v", err))
		return
	}
	req, ok := body.toDomain()
	if !ok {
		badRequest(c, "basePrice is required")
		return
	}

	ctx := c.Request.Context()
	breakdown, err := h.engine.Evaluate(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.publisher.Publish(ctx, events.NewQuoteEvaluatedEvent(req.Context, breakdown)); err != nil {
		log.Warn(ctx, "Failed to publish quote event", zap.Error(err))
	}

	c.JSON(http.StatusOK, newBreakdownResponse(breakdown))
}

// Scenarios handles POST /v1/pricing/scenarios. Nothing is persisted or published.
func (h *Handler) Scenarios(c *gin.Context) {
	var body ScenarioRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, fmt.Sprintf("malformed body: %v", err))
		return
	}

	reqs := make([]pricing.EvaluationRequest, len(body.Scenarios))
	for i, s := range body.Scenarios {
		req, ok := s.toDomain()
		if !ok {
			writeError(c, pricing.NewInvalidRequestError("basePrice is required").AtIndex(i))
			return
		}
		reqs[i] = req
	}

	results, err := h.harness.Run(c.Request.Context(), body.Rules, reqs)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ScenarioResponse{Results: make([]BreakdownResponse, len(results))}
	for i, b := range results {
		resp.Results[i] = newBreakdownResponse(b)
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /ready by taking a rule snapshot.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	snap, err := h.rules.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "snapshotVersion": snap.Version, "rules": len(snap.Rules)})
}
