package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
)

// HealthHandler serves GET /health: liveness plus basic process stats
// (spec.md §6).
type HealthHandler struct {
	app *app.App
}

func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{app: a}
}

func (h *HealthHandler) Get(c *gin.Context) {
	report := h.app.Health.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
