/*
Package httpapi is the HTTP Surface (SPEC_FULL.md §6, spec.md §4.8): a
thin gin adapter over the Validation Layer, Job Registry, and Worker
Supervisor. Handlers parse input, validate, call Registry/Supervisor, and
emit the status code spec.md §7 assigns to the resulting apperr.Kind.

Route grouping and the handler-method-on-a-struct style follow
AMD-AGI-Primus-SaFE/SaFE/apiserver's pkg/handlers packages (one Handler
per resource family, InitXRouters wiring a gin.RouterGroup).
*/
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
)

// statusFor maps an apperr.Kind to the HTTP status spec.md §7's
// propagation policy assigns it.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidRequest, apperr.KindValidationFailed, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the JSON body spec.md §7 describes for each
// kind: validation errors get an `errors` array, everything else a
// single `message`.
func writeError(c *gin.Context, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	status := statusFor(ae.Kind)
	body := gin.H{"success": false, "message": ae.Message}
	if len(ae.Errors) > 0 {
		body["errors"] = ae.Errors
	}
	c.JSON(status, body)
}
