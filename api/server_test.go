package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-rating/core/quoting"
	"freight-rating/core/rating"
	"freight-rating/internal/metrics"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testCard = `
rule "air" {
  transport_mode = "AERIAL"
  base_price     = 8.5
  minimum_charge = 50
  valid_from     = "2025-01-01"
}

rule "sea" {
  transport_mode = "MARITIME"
  base_price     = 150
  minimum_charge = 10
  valid_from     = "2025-01-01"
}

zone "eu" {
  countries  = ["France"]
  multiplier = 2
}

modifier "heavy" {
  type            = "PERCENTAGE"
  value           = -10
  condition       = "WEIGHT_RANGE"
  condition_value = "100-1000"
}
`

type testEnv struct {
	server  *Server
	metrics *metrics.Metrics
	path    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "card.hcl")
	require.NoError(t, os.WriteFile(path, []byte(testCard), 0644))

	var ids atomic.Int64
	m := metrics.New(nil)
	svc, err := quoting.Open(
		quoting.WithRateCardPath(path),
		quoting.WithClock(func() time.Time { return testNow }),
		quoting.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", ids.Add(1)) }),
		quoting.WithMetrics(m),
	)
	require.NoError(t, err)

	return &testEnv{
		server:  NewServer(svc, Options{Version: "test", Metrics: m}),
		metrics: m,
		path:    path,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec = env.do(http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"engine_version":"`+rating.Version+`"`)
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)

	t.Run("aerial with modifier and zone", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes",
			`{"transport_mode":"AERIAL","weight":"200","destination":"Paris, France","departure_date":"2026-05-10"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Quote struct {
				ID          string `json:"id"`
				Calculation struct {
					RuleID            string          `json:"rule_id"`
					FinalPrice        decimal.Decimal `json:"final_price"`
					ZoneMultiplier    decimal.Decimal `json:"zone_multiplier"`
					EstimatedDelivery struct {
						Range string `json:"range"`
					} `json:"estimated_delivery"`
				} `json:"calculation"`
			} `json:"quote"`
			Metadata struct {
				InputHash     string `json:"input_hash"`
				EngineVersion string `json:"engine_version"`
			} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		// 200 kg * 8.5 = 1700, -10% = 1530, x2 zone = 3060
		assert.Equal(t, "air", resp.Quote.Calculation.RuleID)
		assert.True(t, decimal.NewFromInt(3060).Equal(resp.Quote.Calculation.FinalPrice))
		assert.Equal(t, "14/05/2026 - 17/05/2026", resp.Quote.Calculation.EstimatedDelivery.Range)
		assert.Len(t, resp.Metadata.InputHash, 64)
		assert.Equal(t, rating.Version, resp.Metadata.EngineVersion)
	})

	t.Run("numeric weight accepted", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":"AERIAL","weight":1}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"final_price":"50"`)
	})

	t.Run("markdown rendering", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes?format=markdown", `{"transport_mode":"AERIAL","weight":"10"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
		assert.Contains(t, rec.Body.String(), "| **Total** | **85.00 EUR** |")
	})

	t.Run("missing dimensions", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":"MARITIME","weight":"10"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "MISSING_DIMENSIONS", body.Code)
		assert.Equal(t, "INPUT_ERROR", body.Type)
	})

	t.Run("no active rule", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":"AERIAL_EXPRESS","weight":"10"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "NO_ACTIVE_RULE", body.Code)
		assert.Equal(t, "AERIAL_EXPRESS", body.Context["transport_mode"])
	})

	t.Run("invalid dimension", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes",
			`{"transport_mode":"MARITIME","weight":"10","dimensions":{"length":"0","width":"10","height":"10"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_DIMENSION", decodeError(t, rec).Code)
	})

	t.Run("unknown transport mode", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":"RAIL","weight":"10"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "INVALID_REQUEST", body.Code)
		assert.Contains(t, body.Context["fields"], "transport_mode")
	})

	t.Run("non-positive weight", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":"AERIAL","weight":"0"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "weight", decodeError(t, rec).Context["field"])
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMeasurements(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/measurements/cbm", `{"length":"100","width":"50","height":"40"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cbm":"0.2"`)

	rec = env.do(http.MethodPost, "/v1/measurements/cbm", `{"length":"100","width":"-1","height":"40"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/measurements/chargeable-weight",
		`{"actual_weight":"10","dimensions":{"length":"100","width":"50","height":"40"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"volumetric_weight":"`)
	assert.Contains(t, rec.Body.String(), `"chargeable_weight":"33.3333333333333333"`)
}

func TestRuleManagement(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/rules",
		`{"name":"Express","transport_mode":"AERIAL_EXPRESS","base_price":"12","minimum_charge":"75"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created rating.PricingRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, rating.MethodWeight, created.CalculationMethod)
	assert.Equal(t, rating.UnitKilogram, created.Unit)
	assert.True(t, created.IsActive)

	rec = env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":"AERIAL_EXPRESS","weight":"10"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"final_price":"120"`)

	rec = env.do(http.MethodPatch, "/v1/rules/"+created.ID, `{"base_price":"20"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"base_price":"20"`)

	rec = env.do(http.MethodPatch, "/v1/rules/"+created.ID, `{"base_price":"-1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_RULE", decodeError(t, rec).Code)

	rec = env.do(http.MethodPost, "/v1/rules/"+created.ID+"/deactivate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_active":false`)

	rec = env.do(http.MethodGet, "/v1/rules?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed RulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 2, listed.Count)

	rec = env.do(http.MethodGet, "/v1/rules?mode=AERIAL_EXPRESS", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)

	rec = env.do(http.MethodGet, "/v1/rules?mode=RAIL", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/v1/rules/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RULE_NOT_FOUND", decodeError(t, rec).Code)

	rec = env.do(http.MethodPost, "/v1/rules/missing/deactivate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/v1/rules", `{"transport_mode":"AERIAL","base_price":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Context["fields"], "name")
}

func TestZonesModifiersAndReload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = env.do(http.MethodGet, "/v1/modifiers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"heavy"`)

	require.NoError(t, os.WriteFile(env.path, []byte(`rule "air" {
  transport_mode = "AERIAL"
  base_price     = 1
}
`), 0644))
	rec = env.do(http.MethodPost, "/v1/ratecard/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"reloaded","rules":1,"zones":0,"modifiers":0}`, rec.Body.String())

	require.NoError(t, os.WriteFile(env.path, []byte(`rule "air" {`), 0644))
	rec = env.do(http.MethodPost, "/v1/ratecard/reload", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PARSING_ERROR", decodeError(t, rec).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/v1/quotes", `{"transport_mode":"AERIAL","weight":"10"}`)

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `rating_quotes_total{outcome="success",transport_mode="AERIAL"} 1`)
	assert.Contains(t, body, `rating_http_requests_total{method="POST",path="/v1/quotes",status="200"} 1`)
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/v2/anything", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestPatchRule(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/rules/air", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded rating.PricingRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.Equal(t, testNow, loaded.CreatedAt.UTC())

	rec = env.do(http.MethodPatch, "/v1/rules/air", `{"transport_mode":"AERIAL_EXPRESS","base_price":"11"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"transport_mode":"AERIAL_EXPRESS"`)

	rec = env.do(http.MethodGet, "/v1/rules?mode=AERIAL_EXPRESS", "")
	var listed RulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)

	rec = env.do(http.MethodPatch, "/v1/rules/air", `{"maximum_charge":"900"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"maximum_charge":"900"`)

	rec = env.do(http.MethodPatch, "/v1/rules/air", `{"clear_maximum_charge":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), `"maximum_charge"`)

	rec = env.do(http.MethodPatch, "/v1/rules/air", `{"mode":"MARITIME"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_REQUEST", body.Code)
	assert.Contains(t, body.Message, `unknown field "mode"`)

	rec = env.do(http.MethodPatch, "/v1/rules/air", `{"transport_mode":"RAIL"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_RULE", decodeError(t, rec).Code)
}
