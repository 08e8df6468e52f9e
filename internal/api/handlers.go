package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/services"
	"github.com/ariastack/aria-engine/internal/utils"
)

type handlers struct {
	logger  *slog.Logger
	service *services.InvestigationService
}

func newHandlers(logger *slog.Logger, service *services.InvestigationService) *handlers {
	return &handlers{logger: logger, service: service}
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "aria-engine",
		"status":  "ready",
	})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"p95Ms":  h.service.LatencyP95().Milliseconds(),
	})
}

func (h *handlers) demoAlert(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.DemoAlert())
}

// investigate starts a pipeline run and streams its events as SSE frames.
// The stream ends after the terminal report or error event.
func (h *handlers) investigate(c *gin.Context) {
	var alert models.AlertPayload
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	events, err := h.service.Investigate(c.Request.Context(), alert)
	if err != nil {
		status := http.StatusInternalServerError
		if utils.KindOf(err) == utils.KindInput {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("marshal event failed", slog.Any("error", err))
			return false
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		return true
	})
}
