package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
)

type ReferenceHandler struct {
	ReferenceService *services.ReferenceService
}

func NewReferenceHandler(r *services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{ReferenceService: r}
}

func (h *ReferenceHandler) CreateReference(c *gin.Context) {
	var req dtos.ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ref, err := h.ReferenceService.CreateReference(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

func (h *ReferenceHandler) ListReferences(c *gin.Context) {
	refs, err := h.ReferenceService.ListReferences(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

func (h *ReferenceHandler) GetReference(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ref, err := h.ReferenceService.GetReference(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (h *ReferenceHandler) UpdateReference(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.ReferenceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ref, err := h.ReferenceService.UpdateReference(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (h *ReferenceHandler) DeleteReference(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.ReferenceService.DeleteReference(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddContact is POST /references/:id/contacts
func (h *ReferenceHandler) AddContact(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ref, err := h.ReferenceService.AddContact(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

// Portfolio is POST /references/portfolio
func (h *ReferenceHandler) Portfolio(c *gin.Context) {
	var req dtos.PortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	portfolio, err := h.ReferenceService.Portfolio(c.Request.Context(), req.Goal, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": req.Goal, "references": portfolio})
}
