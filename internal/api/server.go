// Package api exposes the tournament and ladder cores over HTTP. It is
// one possible command surface; the cores never parse request text
// themselves.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tt1717/battleserver/internal/battlelog"
	apperrors "github.com/tt1717/battleserver/internal/errors"
	"github.com/tt1717/battleserver/internal/logger"
	"github.com/tt1717/battleserver/internal/rating"
	"github.com/tt1717/battleserver/internal/tournament"
	"github.com/tt1717/battleserver/internal/worker"
)

type Server struct {
	Tournament *tournament.Controller
	Ratings    *rating.Manager
	Battles    *battlelog.Store // optional; nil disables history
	Pool       *worker.Pool     // optional; nil writes history inline

	RatePerSec float64
	RateBurst  int
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		logger.FromContext(r.Context()).Warn("%s", appErr.Error())
		writeJSON(w, appErr.Status, map[string]string{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}
	logger.FromContext(r.Context()).Error("unhandled error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
		"code":  apperrors.ErrCodeInternal,
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewValidationError("body", "invalid JSON")
	}
	return nil
}
