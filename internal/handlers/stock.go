package handlers

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/detail"
	"github.com/bobmcallan/niftyscope/internal/models"
)

// StockPageHandler serves the per-symbol detail page.
type StockPageHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
	model     *detail.Model
}

// NewStockPageHandler creates a new stock page handler.
func NewStockPageHandler(logger *common.Logger, devMode bool, model *detail.Model) *StockPageHandler {
	return &StockPageHandler{
		logger:    logger,
		templates: mustLoadTemplates(),
		devMode:   devMode,
		model:     model,
	}
}

// ServeHTTP handles GET /stock/{symbol}?period=&interval=.
// Load failures render the page with an error message and no chart.
func (h *StockPageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := mux.Vars(r)["symbol"]
	period := r.URL.Query().Get("period")
	interval := r.URL.Query().Get("interval")

	data := baseData("stock", h.devMode)
	data["Symbol"] = symbol
	data["Periods"] = models.Periods
	data["Intervals"] = models.HistoryIntervals
	data["Period"] = orDefault(period, models.DefaultPeriod)
	data["Interval"] = orDefault(interval, models.DefaultInterval)

	status := http.StatusOK
	snap, err := h.model.Load(detailContext(r), symbol, period, interval)
	if err != nil {
		status = StatusForError(err)
		data["Error"] = err.Error()
	} else {
		data["Snapshot"] = snap
		data["Symbol"] = snap.Symbol
	}

	render(w, h.logger, h.templates, status, "stock.html", data)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
