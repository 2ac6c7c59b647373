package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
	"github.com/cuemby/energyplan-orchestrator/internal/config"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script worker fixtures require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newTestApp(t *testing.T, forecastWorker string) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.ProjectRoot = t.TempDir()
	cfg.CacheSweepInterval = 0
	cfg.WorkerExecutables = map[string]string{"forecast": forecastWorker}

	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func newTestRouter(a *app.App) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(a)
}

func TestHealth_ReturnsUnavailableWithMisconfiguredWorker(t *testing.T) {
	a := newTestApp(t, "")
	r := newTestRouter(a)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestForecast_RejectsInvalidBody(t *testing.T) {
	a := newTestApp(t, "/bin/true")
	r := newTestRouter(a)

	body := []byte(`{"targetYear": 1800}`)
	req := httptest.NewRequest(http.MethodPost, "/demand/forecast", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForecast_SubmitAndPollToCompletion(t *testing.T) {
	script := writeScript(t, `
echo '{"type":"progress","progress":50,"step":"fit"}'
echo '{"type":"result","scenario":"base"}'
exit 0
`)
	a := newTestApp(t, script)
	r := newTestRouter(a)

	payload := map[string]interface{}{
		"scenarioName": "base",
		"targetYear":   time.Now().Year() + 1,
		"sectors": map[string]interface{}{
			"residential": map[string]interface{}{"models": []string{"SLR"}},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/demand/forecast", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var submitResp struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))
	require.NotEmpty(t, submitResp.JobID)

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/demand/forecast/"+submitResp.JobID+"/status", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var snap struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &snap)
		return snap.Status == "completed"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadProfile_GetUnknownProfileReturnsNotFound(t *testing.T) {
	a := newTestApp(t, "")
	r := newTestRouter(a)

	req := httptest.NewRequest(http.MethodGet, "/loadprofile/profiles/does-not-exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoadProfile_RejectsPathEscapingProfileID(t *testing.T) {
	a := newTestApp(t, "")
	r := newTestRouter(a)

	req := httptest.NewRequest(http.MethodDelete, "/loadprofile/profiles/..%2F..%2Fetc%2Fpasswd", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPypsaOptimize_RejectsUnknownSolver(t *testing.T) {
	a := newTestApp(t, "")
	r := newTestRouter(a)

	payload := map[string]interface{}{
		"scenarioName":   "base",
		"baseYear":       2025,
		"investmentMode": "greenfield",
		"solver":         map[string]interface{}{"name": "madeup"},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/pypsa/optimize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
