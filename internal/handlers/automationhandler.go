package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
)

// AutomationRunner is the part of the runner the API can trigger.
type AutomationRunner interface {
	RunOnce(ctx context.Context) (services.RunSummary, error)
}

type AutomationHandler struct {
	AutomationService *services.AutomationService
	Runner            AutomationRunner
}

func NewAutomationHandler(a *services.AutomationService, runner AutomationRunner) *AutomationHandler {
	return &AutomationHandler{AutomationService: a, Runner: runner}
}

func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var req dtos.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rule, err := h.AutomationService.CreateRule(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRules is GET /automations, optionally filtered with ?status=
func (h *AutomationHandler) ListRules(c *gin.Context) {
	rules, err := h.AutomationService.ListRules(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *AutomationHandler) GetRule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.AutomationService.GetRule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rule, err := h.AutomationService.UpdateRule(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.AutomationService.DeleteRule(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AutomationHandler) RetryRule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.AutomationService.RetryRule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// RunNow is POST /automations/run. It executes one tick synchronously and
// answers 409 while another tick is in flight.
func (h *AutomationHandler) RunNow(c *gin.Context) {
	summary, err := h.Runner.RunOnce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
