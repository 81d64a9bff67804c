package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/summary"
)

// DashboardHandler serves the watchlist dashboard page.
type DashboardHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
	model     *summary.Model
	columns   []string
	searchMin int
}

// NewDashboardHandler creates a new dashboard handler. columns are the interval labels shown.
func NewDashboardHandler(logger *common.Logger, devMode bool, model *summary.Model, columns []string, searchMin int) *DashboardHandler {
	return &DashboardHandler{
		logger:    logger,
		templates: mustLoadTemplates(),
		devMode:   devMode,
		model:     model,
		columns:   columns,
		searchMin: searchMin,
	}
}

// ServeHTTP renders the dashboard. The first visit triggers the initial summary fetch.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if h.model.State().UpdatedAt.IsZero() {
		err := h.model.Refresh(context.WithoutCancel(r.Context()))
		if err != nil && !errors.Is(err, summary.ErrSuperseded) && h.logger != nil {
			h.logger.Warn().Err(err).Msg("Initial summary fetch failed")
		}
	}

	data := baseData("dashboard", h.devMode)
	data["View"] = h.model.View()
	data["Columns"] = h.columns
	data["SearchMinLength"] = h.searchMin

	render(w, h.logger, h.templates, http.StatusOK, "dashboard.html", data)
}
