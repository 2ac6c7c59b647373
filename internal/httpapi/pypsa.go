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

// extractResultsCacheTTL bounds how long an extracted optimization
// summary stays cached before a subsequent request re-extracts it.
const extractResultsCacheTTL = 15 * time.Minute

// PypsaHandler serves the /pypsa group: the optimization job lifecycle,
// the discovered-network catalog, and result extraction.
type PypsaHandler struct {
	app *app.App
}

func NewPypsaHandler(a *app.App) *PypsaHandler {
	return &PypsaHandler{app: a}
}

type optimizeRequest struct {
	jobs.OptimizationConfig
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

func (h *PypsaHandler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.KindInvalidRequest, "invalid request body", err))
		return
	}

	result := validation.Optimization(req.OptimizationConfig)
	if !result.Valid {
		writeError(c, result.AsError())
		return
	}

	timeout := clampTimeout(time.Duration(req.TimeoutMs)*time.Millisecond, h.app.Config.DefaultTimeouts.Pypsa)
	id, _ := submitJob(h.app, jobs.KindPypsa, req.OptimizationConfig, req.OptimizationConfig, timeout)

	c.JSON(http.StatusAccepted, gin.H{"success": true, "jobId": id, "message": "optimization job submitted"})
}

func (h *PypsaHandler) OptimizationStatus(c *gin.Context) {
	snapshot, err := h.app.Registry.Get(jobs.KindPypsa, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *PypsaHandler) OptimizationCancel(c *gin.Context) {
	id := c.Param("id")
	if err := cancelAndConfirm(h.app, jobs.KindPypsa, id); err != nil {
		writeError(c, err)
		return
	}
	snapshot, err := h.app.Registry.Get(jobs.KindPypsa, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *PypsaHandler) Networks(c *gin.Context) {
	if err := h.app.Discovery.Rescan(h.app.Store); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "networks": h.app.Discovery.Networks()})
}

type extractResultsRequest struct {
	ScenarioName string `json:"scenarioName" binding:"required"`
	Sector       string `json:"sector,omitempty"`
}

// ExtractResults implements SPEC_FULL.md §4's supplement: validate, run
// (or reuse a cached) extraction against the scenario's network file,
// return it behind the same source:"script"|"cache" envelope the demand
// endpoints use.
func (h *PypsaHandler) ExtractResults(c *gin.Context) {
	var req extractResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.KindInvalidRequest, "invalid request body", err))
		return
	}
	if !validation.IsSafeIdentifier(req.ScenarioName) {
		writeError(c, apperr.New(apperr.KindInvalidRequest, "invalid scenarioName"))
		return
	}

	executable := h.app.Config.WorkerExecutables[string(jobs.KindPypsa)]
	payload := map[string]string{
		"action":       "extract_results",
		"scenarioName": req.ScenarioName,
		"sector":       req.Sector,
	}
	key := "pypsa-results:" + req.ScenarioName + ":" + req.Sector

	data, source, err := cachedExtraction(h.app, executable, payload, key, extractResultsCacheTTL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "source": source})
}
