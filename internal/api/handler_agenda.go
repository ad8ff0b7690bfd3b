package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"formazing-backend/internal/training"
)

// GetAgenda handles GET /api/agenda?range=today|tomorrow|week.
func (h *Handler) GetAgenda(c *gin.Context) {
	r, err := training.ParseRange(c.Query("range"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	days, err := h.svc.Agenda(c.Request.Context(), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "days": days})
}

// ListRuns handles GET /api/runs.
func (h *Handler) ListRuns(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	runs, err := h.runs.List(c.Request.Context(), c.Query("training_id"), limit)
	if err != nil {
		h.log.WithError(err).Error("failed to list workflow runs")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}
