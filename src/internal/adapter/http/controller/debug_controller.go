package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/gorilla/mux"
)

type DebugService interface {
	Debug(ctx context.Context, sessionID string) (models.DebugResponse, error)
	ResetData(ctx context.Context, sessionID string) (models.ResetDataResponse, error)
}

// DebugController serves the development-only routes. They answer 403 unless
// debug mode is enabled.
type DebugController struct {
	service DebugService
	enabled bool
}

func NewDebugController(service DebugService, enabled bool) *DebugController {
	return &DebugController{service: service, enabled: enabled}
}

func (c *DebugController) RegisterRoutes(router *mux.Router, middlewares ...func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc, disabledMessage string) http.Handler {
		var handler http.Handler = h
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] != nil {
				handler = middlewares[i](handler)
			}
		}
		return c.requireDebug(handler, disabledMessage)
	}

	router.Handle("/debug", wrap(c.debug, "Debug mode disabled")).Methods(http.MethodGet)
	router.Handle("/reset-data", wrap(c.resetData, "Not available in production")).Methods(http.MethodPost)
}

func (c *DebugController) requireDebug(next http.Handler, disabledMessage string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.enabled {
			start := time.Now()
			response := models.ErrorResponse{Error: disabledMessage}
			writeJSON(w, http.StatusForbidden, response)
			logResponse(r, http.StatusForbidden, response, start)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *DebugController) debug(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.Debug(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *DebugController) resetData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.ResetData(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
