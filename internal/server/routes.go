package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()
	a := s.app

	// UI pages (HTML templates)
	r.Handle("/", a.DashboardHandler).Methods(http.MethodGet)
	r.Handle("/stock/{symbol}", a.StockPageHandler).Methods(http.MethodGet)

	// Static files (CSS, JS, images)
	r.PathPrefix("/static/").HandlerFunc(a.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if a.MCPHandler != nil {
		r.Handle("/mcp", a.MCPHandler)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/health", a.HealthHandler)
	api.Handle("/version", a.VersionHandler)
	api.Handle("/server-health", a.ServerHealthHandler)

	api.Handle("/watchlist", a.WatchlistHandler).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/watchlist/{symbol}", a.WatchlistHandler.HandleRemove).Methods(http.MethodDelete)

	api.HandleFunc("/summary", a.SummaryHandler.HandleView).Methods(http.MethodGet)
	api.HandleFunc("/summary/refresh", a.SummaryHandler.HandleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/summary/sort", a.SummaryHandler.HandleSort).Methods(http.MethodPost)

	api.HandleFunc("/search", a.SearchHandler.HandleSearch).Methods(http.MethodGet)
	api.HandleFunc("/search/select", a.SearchHandler.HandleSelect).Methods(http.MethodPost)

	api.Handle("/stocks/{symbol}", a.StockAPIHandler).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	return r
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// handleNotFound returns a JSON 404 for API routes and the not-found page otherwise.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if !isAPIPath(r.URL.Path) {
		s.app.PageHandler.ServePage("notfound.html", "notfound", http.StatusNotFound)(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"status":"error","error":"The requested endpoint does not exist"}`))
}

// handleMethodNotAllowed answers a known path called with the wrong method.
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	w.Write([]byte(`{"status":"error","error":"Method not allowed"}`))
}
