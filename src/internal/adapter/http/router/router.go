package router

import (
	"net/http"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/middleware"
	"github.com/gorilla/mux"
)

type ATMRouteRegistrar interface {
	RegisterRoutes(router *mux.Router, sessionMiddleware func(http.Handler) http.Handler)
}

type DebugRouteRegistrar interface {
	RegisterRoutes(router *mux.Router, middlewares ...func(http.Handler) http.Handler)
}

type PageHandler interface {
	RegisterRoutes(router *mux.Router, sessionMiddleware func(http.Handler) http.Handler)
	NotFound(w http.ResponseWriter, r *http.Request)
	MethodNotAllowed(w http.ResponseWriter, r *http.Request)
	InternalError(w http.ResponseWriter, r *http.Request)
}

type Options struct {
	SessionMiddleware   func(http.Handler) http.Handler
	DebugAuthMiddleware func(http.Handler) http.Handler
}

func New(
	atmController ATMRouteRegistrar,
	debugController DebugRouteRegistrar,
	pages PageHandler,
	opts Options,
) http.Handler {
	router := mux.NewRouter()
	registerSwaggerRoutes(router)
	router.HandleFunc("/healthz", health).Methods(http.MethodGet)

	if atmController != nil {
		atmController.RegisterRoutes(router, opts.SessionMiddleware)
	}
	if debugController != nil {
		// Basic auth runs before the session is resolved so rejected callers never get one.
		debugController.RegisterRoutes(router, opts.DebugAuthMiddleware, opts.SessionMiddleware)
	}
	if pages != nil {
		pages.RegisterRoutes(router, opts.SessionMiddleware)
		router.NotFoundHandler = http.HandlerFunc(pages.NotFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(pages.MethodNotAllowed)
		return middleware.Recover(pages.InternalError)(router)
	}

	return router
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
