package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/detail"
)

// StockAPIHandler serves the detail view JSON API.
type StockAPIHandler struct {
	logger *common.Logger
	model  *detail.Model
}

// NewStockAPIHandler creates a new stock API handler.
func NewStockAPIHandler(logger *common.Logger, model *detail.Model) *StockAPIHandler {
	return &StockAPIHandler{logger: logger, model: model}
}

// ServeHTTP handles GET /api/stocks/{symbol}?period=&interval=.
func (h *StockAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	snap, err := h.model.Load(detailContext(r), mux.Vars(r)["symbol"], q.Get("period"), q.Get("interval"))
	if err != nil {
		WriteError(w, StatusForError(err), err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   snap,
	})
}
