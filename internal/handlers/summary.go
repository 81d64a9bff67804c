package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/summary"
)

type sortRequest struct {
	Key string `json:"key" validate:"required"`
}

// SummaryHandler serves the dashboard table JSON API.
type SummaryHandler struct {
	logger  *common.Logger
	model   *summary.Model
	columns []string
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(logger *common.Logger, model *summary.Model, columns []string) *SummaryHandler {
	return &SummaryHandler{logger: logger, model: model, columns: columns}
}

// viewResponse is the body of every summary endpoint.
type viewResponse struct {
	Status  string   `json:"status"`
	Columns []string `json:"columns"`
	summary.View
}

func (h *SummaryHandler) writeView(w http.ResponseWriter, status int) {
	WriteJSON(w, status, viewResponse{Status: "ok", Columns: h.columns, View: h.model.View()})
}

// HandleView handles GET /api/summary.
func (h *SummaryHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.writeView(w, http.StatusOK)
}

// HandleRefresh handles POST /api/summary/refresh.
func (h *SummaryHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.model.Refresh(r.Context()); err != nil {
		if errors.Is(err, summary.ErrSuperseded) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteJSON(w, StatusForError(err), map[string]interface{}{
			"status":  "error",
			"error":   err.Error(),
			"columns": h.columns,
			"rows":    h.model.View().Rows,
		})
		return
	}
	h.writeView(w, http.StatusOK)
}

// HandleSort handles POST /api/summary/sort.
func (h *SummaryHandler) HandleSort(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req sortRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.model.Sort(req.Key); err != nil {
		WriteError(w, StatusForError(err), err.Error())
		return
	}
	h.writeView(w, http.StatusOK)
}
