package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
)

type GoalHandler struct {
	GoalService *services.GoalService
}

func NewGoalHandler(g *services.GoalService) *GoalHandler {
	return &GoalHandler{GoalService: g}
}

// goalResponse adds the derived progress to a goal.
type goalResponse struct {
	*models.Goal
	Progress models.GoalProgress `json:"progress"`
}

func newGoalResponse(g *models.Goal) goalResponse {
	return goalResponse{Goal: g, Progress: g.Progress()}
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req dtos.GoalCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := h.GoalService.CreateGoal(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newGoalResponse(goal))
}

func (h *GoalHandler) ListGoals(c *gin.Context) {
	goals, err := h.GoalService.ListGoals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]goalResponse, len(goals))
	for i := range goals {
		out[i] = newGoalResponse(&goals[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *GoalHandler) GetGoal(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	goal, err := h.GoalService.GetGoal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGoalResponse(goal))
}

func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.GoalUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := h.GoalService.UpdateGoal(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGoalResponse(goal))
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.GoalService.DeleteGoal(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GoalHandler) AddMilestone(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := h.GoalService.AddMilestone(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newGoalResponse(goal))
}

func (h *GoalHandler) UpdateMilestone(c *gin.Context) {
	goalID, ok := idParam(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := idParam(c, "milestoneId")
	if !ok {
		return
	}
	var req dtos.MilestoneUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := h.GoalService.UpdateMilestone(c.Request.Context(), goalID, milestoneID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGoalResponse(goal))
}

func (h *GoalHandler) DeleteMilestone(c *gin.Context) {
	goalID, ok := idParam(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := idParam(c, "milestoneId")
	if !ok {
		return
	}
	goal, err := h.GoalService.DeleteMilestone(c.Request.Context(), goalID, milestoneID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGoalResponse(goal))
}

// ToggleMilestone is POST /goals/:id/milestones/:milestoneId/toggle. An empty
// body flips the milestone; {"completed": bool} sets it.
func (h *GoalHandler) ToggleMilestone(c *gin.Context) {
	goalID, ok := idParam(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := idParam(c, "milestoneId")
	if !ok {
		return
	}
	var req dtos.MilestoneToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	goal, err := h.GoalService.ToggleMilestone(c.Request.Context(), goalID, milestoneID, req.Completed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGoalResponse(goal))
}

// Insights is GET /insights/goals
func (h *GoalHandler) Insights(c *gin.Context) {
	insights, err := h.GoalService.Insights(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}
