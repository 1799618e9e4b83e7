package controller

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/adapter/http/models"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templateFS embed.FS

type PageController struct {
	templates *template.Template
}

func NewPageController() (*PageController, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &PageController{templates: templates}, nil
}

func (c *PageController) RegisterRoutes(router *mux.Router, sessionMiddleware func(http.Handler) http.Handler) {
	var index http.Handler = http.HandlerFunc(c.index)
	if sessionMiddleware != nil {
		index = sessionMiddleware(index)
	}
	router.Handle("/", index).Methods(http.MethodGet)
}

func (c *PageController) index(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, "index.html")
}

// NotFound answers JSON for API paths and the 404 page otherwise.
func (c *PageController) NotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		start := time.Now()
		response := models.ErrorResponse{Error: "Not found"}
		writeJSON(w, http.StatusNotFound, response)
		logResponse(r, http.StatusNotFound, response, start)
		return
	}
	c.render(w, r, http.StatusNotFound, "404.html")
}

func (c *PageController) InternalError(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		start := time.Now()
		response := models.ErrorResponse{Error: "Internal server error"}
		writeJSON(w, http.StatusInternalServerError, response)
		logResponse(r, http.StatusInternalServerError, response, start)
		return
	}
	c.render(w, r, http.StatusInternalServerError, "500.html")
}

func (c *PageController) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	response := models.ErrorResponse{Error: "method not allowed"}
	writeJSON(w, http.StatusMethodNotAllowed, response)
	logResponse(r, http.StatusMethodNotAllowed, response, start)
}

func (c *PageController) render(w http.ResponseWriter, r *http.Request, status int, name string) {
	var buf bytes.Buffer
	if err := c.templates.ExecuteTemplate(&buf, name, nil); err != nil {
		logger.Error("page render failed", err, logger.Fields{"template": name, "path": r.URL.Path})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
