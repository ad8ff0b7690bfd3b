package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"formazing-backend/internal/model"
	"formazing-backend/internal/training"
)

// Workflows is the training orchestrator as seen by the HTTP layer.
type Workflows interface {
	List(ctx context.Context, status model.Status) ([]model.Training, error)
	PreviewNotification(ctx context.Context, id string) (*training.NotificationPreview, error)
	SendNotification(ctx context.Context, id string) (*training.NotificationResult, error)
	PreviewFeedback(ctx context.Context, id string) (*training.FeedbackPreview, error)
	SendFeedback(ctx context.Context, id string) (*training.FeedbackResult, error)
	Agenda(ctx context.Context, r training.Range) ([]training.AgendaDay, error)
}

// RunLister reads the workflow run journal.
type RunLister interface {
	List(ctx context.Context, trainingID string, limit int) ([]model.WorkflowRun, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc  Workflows
	runs RunLister
	log  logrus.FieldLogger
}

// NewHandler creates a new API handler.
func NewHandler(svc Workflows, runs RunLister, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, runs: runs, log: log}
}

// statusCode maps a workflow error to the HTTP status returned to the client.
func statusCode(err error) int {
	var gerr *training.GatewayError
	switch {
	case errors.Is(err, model.ErrTrainingNotFound):
		return http.StatusNotFound
	case errors.Is(err, training.ErrPrecondition):
		return http.StatusConflict
	case errors.As(err, &gerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := statusCode(err)
	entry := h.log.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": code,
	})
	if code >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// Healthz handles GET /healthz.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
