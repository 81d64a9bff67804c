package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/models"
	"github.com/bobmcallan/niftyscope/internal/search"
)

// SearchHandler serves the search box JSON API.
type SearchHandler struct {
	logger *common.Logger
	helper *search.Helper
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(logger *common.Logger, helper *search.Helper) *SearchHandler {
	return &SearchHandler{logger: logger, helper: helper}
}

// HandleSearch handles GET /api/search?q=. A query overtaken by a newer one
// answers {"status":"superseded"} so the page can ignore it.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	results, err := h.helper.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if errors.Is(err, search.ErrSuperseded) {
			WriteJSON(w, http.StatusOK, map[string]interface{}{
				"status":  "superseded",
				"results": []models.SearchResult{},
			})
			return
		}
		WriteError(w, StatusForError(err), err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"results": results,
	})
}

// HandleSelect handles POST /api/search/select: adds the symbol and clears the search.
func (h *SearchHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req symbolRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := h.helper.Select(r.Context(), req.Symbol)
	if err != nil && !added {
		WriteError(w, StatusForError(err), err.Error())
		return
	}

	body := map[string]interface{}{
		"status": "ok",
		"added":  added,
	}
	if err != nil {
		body["warning"] = err.Error()
	}
	WriteJSON(w, http.StatusOK, body)
}
