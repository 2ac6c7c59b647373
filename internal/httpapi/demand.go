package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/jobs"
	"github.com/cuemby/energyplan-orchestrator/internal/validation"
)

// sectorCacheTTL and correlationCacheTTL bound how long a demand
// extraction stays cached before a subsequent request re-runs the
// worker, per Scenario D in spec.md §8.
const (
	sectorCacheTTL      = 15 * time.Minute
	correlationCacheTTL = 15 * time.Minute
)

// DemandHandler serves the /demand group: cached sector/correlation
// lookups and the forecast job lifecycle.
type DemandHandler struct {
	app *app.App
}

func NewDemandHandler(a *app.App) *DemandHandler {
	return &DemandHandler{app: a}
}

func (h *DemandHandler) Sector(c *gin.Context) {
	sector := c.Param("sector")
	executable := h.app.Config.WorkerExecutables[string(jobs.KindForecast)]
	payload := map[string]string{"action": "extract_sector", "sector": sector}

	data, source, err := cachedExtraction(h.app, executable, payload, "sector:"+sector, sectorCacheTTL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "source": source})
}

func (h *DemandHandler) Correlation(c *gin.Context) {
	sector := c.Param("sector")
	executable := h.app.Config.WorkerExecutables[string(jobs.KindForecast)]
	payload := map[string]string{"action": "extract_correlation", "sector": sector}

	data, source, err := cachedExtraction(h.app, executable, payload, "correlation:"+sector, correlationCacheTTL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "source": source})
}

type forecastRequest struct {
	jobs.ForecastConfig
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

func (h *DemandHandler) Forecast(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.KindInvalidRequest, "invalid request body", err))
		return
	}

	result := validation.Forecast(req.ForecastConfig)
	if !result.Valid {
		writeError(c, result.AsError())
		return
	}

	timeout := clampTimeout(time.Duration(req.TimeoutMs)*time.Millisecond, h.app.Config.DefaultTimeouts.Forecast)
	id, _ := submitJob(h.app, jobs.KindForecast, req.ForecastConfig, req.ForecastConfig, timeout)

	c.JSON(http.StatusAccepted, gin.H{"success": true, "jobId": id, "message": "forecast job submitted"})
}

func (h *DemandHandler) ForecastStatus(c *gin.Context) {
	snapshot, err := h.app.Registry.Get(jobs.KindForecast, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *DemandHandler) ForecastCancel(c *gin.Context) {
	id := c.Param("id")
	if err := cancelAndConfirm(h.app, jobs.KindForecast, id); err != nil {
		writeError(c, err)
		return
	}
	snapshot, err := h.app.Registry.Get(jobs.KindForecast, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
