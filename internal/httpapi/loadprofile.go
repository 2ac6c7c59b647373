package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/artifacts"
	"github.com/cuemby/energyplan-orchestrator/internal/jobs"
	"github.com/cuemby/energyplan-orchestrator/internal/validation"
)

// LoadProfileHandler serves the /loadprofile group: the generation job
// lifecycle, the discovered-profile catalog, and the synchronous compare
// endpoint.
type LoadProfileHandler struct {
	app *app.App
}

func NewLoadProfileHandler(a *app.App) *LoadProfileHandler {
	return &LoadProfileHandler{app: a}
}

type loadProfileRequest struct {
	jobs.LoadProfileConfig
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

func (h *LoadProfileHandler) Generate(c *gin.Context) {
	var req loadProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.KindInvalidRequest, "invalid request body", err))
		return
	}

	result := validation.LoadProfile(req.LoadProfileConfig)
	if !result.Valid {
		writeError(c, result.AsError())
		return
	}

	timeout := clampTimeout(time.Duration(req.TimeoutMs)*time.Millisecond, h.app.Config.DefaultTimeouts.Profile)
	id, _ := submitJob(h.app, jobs.KindProfile, req.LoadProfileConfig, req.LoadProfileConfig, timeout)

	c.JSON(http.StatusAccepted, gin.H{"success": true, "jobId": id, "message": "load profile generation job submitted"})
}

func (h *LoadProfileHandler) JobStatus(c *gin.Context) {
	snapshot, err := h.app.Registry.Get(jobs.KindProfile, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *LoadProfileHandler) JobCancel(c *gin.Context) {
	id := c.Param("id")
	if err := cancelAndConfirm(h.app, jobs.KindProfile, id); err != nil {
		writeError(c, err)
		return
	}
	snapshot, err := h.app.Registry.Get(jobs.KindProfile, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *LoadProfileHandler) List(c *gin.Context) {
	if err := h.app.Discovery.Rescan(h.app.Store); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profiles": h.app.Discovery.Profiles()})
}

func (h *LoadProfileHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !validation.IsSafeIdentifier(id) {
		writeError(c, apperr.New(apperr.KindInvalidRequest, "invalid profile id"))
		return
	}
	meta, ok, err := h.app.Discovery.Profile(h.app.Store, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeError(c, apperr.New(apperr.KindNotFound, "profile not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": meta})
}

func (h *LoadProfileHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !validation.IsSafeIdentifier(id) {
		writeError(c, apperr.New(apperr.KindInvalidRequest, "invalid profile id"))
		return
	}
	if err := h.app.Store.Delete(artifacts.LoadProfilePath(id)); err != nil {
		writeError(c, err)
		return
	}
	_ = h.app.Discovery.Rescan(h.app.Store)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type compareRequest struct {
	ProfileIDs []string `json:"profileIds" binding:"required,min=2"`
}

type profileComparison struct {
	ProfileID   string  `json:"profileId"`
	Peak        float64 `json:"peak"`
	AnnualTotal float64 `json:"annualTotal"`
	LoadFactor  float64 `json:"loadFactor"`
}

// Compare is the synchronous (non-job) endpoint SPEC_FULL.md §4
// supplements: comparison of already-generated profiles is cheap and
// deterministic, so it runs inline rather than spawning a worker.
func (h *LoadProfileHandler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.KindInvalidRequest, "invalid request body", err))
		return
	}

	comparisons := make([]profileComparison, 0, len(req.ProfileIDs))
	for _, id := range req.ProfileIDs {
		if !validation.IsSafeIdentifier(id) {
			writeError(c, apperr.New(apperr.KindInvalidRequest, "invalid profile id: "+id))
			return
		}
		meta, ok, err := h.app.Discovery.Profile(h.app.Store, id)
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			writeError(c, apperr.New(apperr.KindNotFound, "profile not found: "+id))
			return
		}

		total, _ := meta.Summary["total"].(float64)
		peak, _ := meta.Summary["peak"].(float64)
		var loadFactor float64
		hours := float64(len(meta.YearsGenerated)) * 8760
		if peak > 0 && hours > 0 {
			loadFactor = total / (peak * hours)
		}
		comparisons = append(comparisons, profileComparison{
			ProfileID: id, Peak: peak, AnnualTotal: total, LoadFactor: loadFactor,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "comparisons": comparisons})
}
