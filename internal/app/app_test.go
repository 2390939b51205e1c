package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetroad/pricingservice/internal/cache"
	"github.com/fleetroad/pricingservice/internal/config"
	"github.com/fleetroad/pricingservice/internal/events"
	"github.com/fleetroad/pricingservice/internal/pricing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.HTTP.Address = "127.0.0.1:0"
	cfg.Metrics.Address = "127.0.0.1:0"
	cfg.Log.Level = "error"
	cfg.Pricing.TaxRate = 0.1
	return cfg
}

func evaluate(t *testing.T, h http.Handler, body string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/pricing/evaluate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const quote = `{"jobType": "standard", "scheduledFor": "2026-03-02T22:30:00Z", "basePrice": 100}`

func TestNew_InMemoryDefaults(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(ctx) })

	_, isNotifying := a.Store().(*events.NotifyingStore)
	assert.True(t, isNotifying)

	resp := evaluate(t, a.Handler(), quote)
	assert.Equal(t, 100.0, resp["subtotal"])
	assert.Equal(t, 110.0, resp["totalAmount"])

	m := decimal.RequireFromString("2")
	_, err = a.Store().Upsert(ctx, pricing.PricingRule{
		ID: "double", Name: "Double", RuleType: pricing.RuleTypeDemand, Priority: 10, Multiplier: &m, IsActive: true,
	})
	require.NoError(t, err)

	resp = evaluate(t, a.Handler(), quote)
	assert.Equal(t, 200.0, resp["subtotal"])
	assert.Equal(t, 220.0, resp["totalAmount"])
}

func TestNew_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(ctx) })

	evaluate(t, a.Handler(), quote)
	assert.True(t, mr.Exists("pricing:rules:snapshot"))

	m := decimal.RequireFromString("3")
	_, err = a.Store().Upsert(ctx, pricing.PricingRule{
		ID: "triple", Name: "Triple", RuleType: pricing.RuleTypeDemand, Priority: 10, Multiplier: &m, IsActive: true,
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("pricing:rules:snapshot"))

	resp := evaluate(t, a.Handler(), quote)
	assert.Equal(t, 300.0, resp["subtotal"])
}

func TestNew_UnreachableRedisFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Addr = addr

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(ctx) })

	_, err = a.Store().Snapshot(ctx)
	assert.NoError(t, err)
	_, cached := a.Store().(*events.NotifyingStore).RuleStore.(*cache.CachedRepository)
	assert.False(t, cached)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.ShutdownTimeout = time.Second

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pricing.TaxRate = 0.0825
	cfg.Pricing.BatchConcurrency = 3

	ec := EngineConfig(cfg)
	assert.True(t, decimal.RequireFromString("0.0825").Equal(ec.TaxRate))
	assert.Equal(t, 3, ec.BatchConcurrency)
	assert.Equal(t, cfg.Pricing.MaxScenarios, ec.MaxScenarios)
}

func TestNew_RateLimitedThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.Limits.Enabled = true
	cfg.Limits.RequestsPerMinute = 1

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(ctx) })

	evaluate(t, a.Handler(), quote)

	req := httptest.NewRequest(http.MethodPost, "/v1/pricing/evaluate", bytes.NewBufferString(quote))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
