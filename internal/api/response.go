package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/orchestrate"
	"github.com/sells-group/vendor-pipeline/internal/pipeline"
	"github.com/sells-group/vendor-pipeline/internal/sanitize"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

const msgInternal = "internal server error"

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError writes {"error": msg} after redacting secrets, paths and SQL.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: sanitize.Message(msg)})
}

// statusFor classifies an error into an HTTP status.
func statusFor(err error) int {
	var (
		phaseErr *pipeline.PhaseError
		valErr   *pipeline.ValidationError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrate.ErrPhaseInProgress):
		return http.StatusConflict
	case errors.Is(err, orchestrate.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.As(err, &phaseErr), errors.As(err, &valErr), errors.Is(err, pipeline.ErrMissingUpstream):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure maps err to a status. Client errors carry the sanitized
// message; server errors are logged and reported generically.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, msgInternal)
		return
	}
	writeError(w, status, err.Error())
}

// phaseFailure is writeFailure for phase triggers: anything that is not a
// missing task, a conflict or a shutdown is reported as 400.
func phaseFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch statusFor(err) {
	case http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable:
		writeFailure(w, r, err)
	default:
		zap.L().Warn("api: phase failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
