package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"formazing-backend/internal/model"
)

var listKeys = []struct {
	key    string
	status model.Status
}{
	{"scheduled", model.StatusScheduled},
	{"calendarized", model.StatusCalendarized},
	{"concluded", model.StatusConcluded},
}

// ListTrainings handles GET /api/trainings. Without a status filter every
// lifecycle bucket is returned, keyed by its English name.
func (h *Handler) ListTrainings(c *gin.Context) {
	filter := strings.TrimSpace(c.Query("status"))
	var want model.Status
	if filter != "" {
		s, err := model.ParseStatus(filter)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		want = s
	}

	resp := make(gin.H, len(listKeys))
	for _, k := range listKeys {
		if want != "" && k.status != want {
			continue
		}
		trainings, err := h.svc.List(c.Request.Context(), k.status)
		if err != nil {
			h.fail(c, err)
			return
		}
		if trainings == nil {
			trainings = []model.Training{}
		}
		resp[k.key] = trainings
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewNotification handles GET /api/trainings/:id/notification/preview.
func (h *Handler) PreviewNotification(c *gin.Context) {
	p, err := h.svc.PreviewNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SendNotification handles POST /api/trainings/:id/notification.
func (h *Handler) SendNotification(c *gin.Context) {
	res, err := h.svc.SendNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PreviewFeedback handles GET /api/trainings/:id/feedback/preview.
func (h *Handler) PreviewFeedback(c *gin.Context) {
	p, err := h.svc.PreviewFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SendFeedback handles POST /api/trainings/:id/feedback. Messages may have
// gone out even when concluding the record failed; the response then carries
// both the send results and the error.
func (h *Handler) SendFeedback(c *gin.Context) {
	res, err := h.svc.SendFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		if res != nil {
			code := statusCode(err)
			h.log.WithError(err).WithField("training_id", c.Param("id")).Error("feedback sent but conclusion failed")
			c.AbortWithStatusJSON(code, gin.H{"error": err.Error(), "result": res})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
