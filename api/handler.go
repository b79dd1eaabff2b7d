package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"freight-rating/core/output"
	"freight-rating/core/rating"
	"freight-rating/internal/errors"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleVersion handles GET /version
func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":        s.version,
		"engine":         "freight-rating",
		"engine_version": rating.Version,
		"api_version":    "v1",
	})
}

// handleQuote handles POST /v1/quotes
//
// The optional format query parameter selects cli or markdown rendering
// instead of JSON.
func (s *Server) handleQuote(c *gin.Context) {
	start := time.Now()

	format, err := output.ParseFormat(c.DefaultQuery("format", string(output.FormatJSON)))
	if err != nil {
		s.respondError(c, err)
		return
	}

	var body QuoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	req, err := body.toDomain()
	if err != nil {
		s.respondError(c, err)
		return
	}

	// Execute quoting (NO PRICING LOGIC HERE)
	quote, err := s.service.Quote(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := output.NewQuoteResult(quote, time.Since(start))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if format == output.FormatJSON {
		c.JSON(http.StatusOK, result)
		return
	}

	formatter, ok := s.formatters.GetFormatter(format)
	if !ok {
		s.respondError(c, errors.NotSupported("format "+string(format)))
		return
	}
	var buf bytes.Buffer
	if err := formatter.RenderQuote(&buf, result); err != nil {
		s.respondError(c, errors.Internal("failed to render quote", err))
		return
	}
	contentType := "text/plain; charset=utf-8"
	if format == output.FormatMarkdown {
		contentType = "text/markdown; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// handleCBM handles POST /v1/measurements/cbm
func (s *Server) handleCBM(c *gin.Context) {
	var body CBMRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	calc, err := s.service.CBM(body.Length, body.Width, body.Height)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, calc)
}

// handleChargeableWeight handles POST /v1/measurements/chargeable-weight
func (s *Server) handleChargeableWeight(c *gin.Context) {
	var body ChargeableWeightRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	if body.ActualWeight.IsNegative() {
		s.respondError(c, invalidField("actual_weight", "must not be negative"))
		return
	}
	c.JSON(http.StatusOK, s.service.ChargeableWeight(body.ActualWeight, body.Dimensions))
}

// handleListRules handles GET /v1/rules?mode=&active=
func (s *Server) handleListRules(c *gin.Context) {
	activeOnly := false
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(c, invalidField("active", "must be a boolean"))
			return
		}
		activeOnly = v
	}

	var rules []rating.PricingRule
	if raw := c.Query("mode"); raw != "" {
		mode := rating.TransportMode(raw)
		if !mode.Valid() {
			s.respondError(c, invalidField("mode", "is not a transport mode"))
			return
		}
		rules = s.service.RulesByTransportMode(mode)
	} else {
		rules = s.service.Rules()
	}

	if activeOnly {
		kept := rules[:0]
		for _, r := range rules {
			if r.IsActive {
				kept = append(kept, r)
			}
		}
		rules = kept
	}
	if rules == nil {
		rules = []rating.PricingRule{}
	}
	c.JSON(http.StatusOK, RulesResponse{Rules: rules, Count: len(rules)})
}

// handleGetRule handles GET /v1/rules/:id
func (s *Server) handleGetRule(c *gin.Context) {
	rule, err := s.service.Rule(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// handleAddRule handles POST /v1/rules
func (s *Server) handleAddRule(c *gin.Context) {
	var body RuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	rule, err := s.service.AddRule(body.toDomain(s.service.Now()))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// handleUpdateRule handles PATCH /v1/rules/:id
func (s *Server) handleUpdateRule(c *gin.Context) {
	var update rating.RuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		s.respondError(c, bindError(err))
		return
	}

	rule, err := s.service.UpdateRule(c.Param("id"), update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// handleDeactivateRule handles POST /v1/rules/:id/deactivate
func (s *Server) handleDeactivateRule(c *gin.Context) {
	rule, err := s.service.DeactivateRule(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// handleListZones handles GET /v1/zones
func (s *Server) handleListZones(c *gin.Context) {
	zones := s.service.Zones()
	if zones == nil {
		zones = []rating.PricingZone{}
	}
	c.JSON(http.StatusOK, ZonesResponse{Zones: zones, Count: len(zones)})
}

// handleListModifiers handles GET /v1/modifiers
func (s *Server) handleListModifiers(c *gin.Context) {
	mods := s.service.Modifiers()
	if mods == nil {
		mods = []rating.PricingModifier{}
	}
	c.JSON(http.StatusOK, ModifiersResponse{Modifiers: mods, Count: len(mods)})
}

// handleReload handles POST /v1/ratecard/reload
func (s *Server) handleReload(c *gin.Context) {
	if err := s.service.Reload(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	snap := s.service.Snapshot()
	c.JSON(http.StatusOK, ReloadResponse{
		Status:    "reloaded",
		Rules:     len(snap.Rules),
		Zones:     len(snap.Zones),
		Modifiers: len(snap.Modifiers),
	})
}
