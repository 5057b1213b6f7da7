package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pgstay-backend/internal/engine"
)

// respondError translates an engine error kind into an HTTP status and
// a machine-readable body. Capacity keeps its own code so clients can
// render "no space" differently from a rule violation.
func respondError(c *gin.Context, err error) {
	kind := engine.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case engine.KindValidation:
		status = http.StatusBadRequest
	case engine.KindNotFound:
		status = http.StatusNotFound
	case engine.KindConflict, engine.KindCapacity, engine.KindPrecondition:
		status = http.StatusConflict
	case engine.KindConcurrency:
		// Retries inside the engine are exhausted at this point.
		status = http.StatusServiceUnavailable
	}

	body := gin.H{"error": err.Error()}
	if code := engine.CodeOf(err); code != "" {
		body["code"] = code
	}
	if kind != "" {
		body["kind"] = string(kind)
	}

	c.AbortWithStatusJSON(status, body)
}
