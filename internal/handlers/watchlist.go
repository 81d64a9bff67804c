package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/watchlist"
)

// symbolRequest is the body of POST /api/watchlist and POST /api/search/select.
type symbolRequest struct {
	Symbol string `json:"symbol" validate:"required,max=32"`
}

// WatchlistHandler serves the watchlist JSON API.
type WatchlistHandler struct {
	logger *common.Logger
	store  *watchlist.Store
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(logger *common.Logger, store *watchlist.Store) *WatchlistHandler {
	return &WatchlistHandler{logger: logger, store: store}
}

// ServeHTTP handles GET and POST /api/watchlist.
func (h *WatchlistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"symbols": h.store.Symbols(),
		})
	case http.MethodPost:
		h.handleAdd(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WatchlistHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := h.store.Add(r.Context(), req.Symbol)
	if err != nil && !added {
		WriteError(w, StatusForError(err), err.Error())
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeMutation(w, status, "added", added, h.store.Symbols(), err)
}

// HandleRemove handles DELETE /api/watchlist/{symbol}.
func (h *WatchlistHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	removed, err := h.store.Remove(r.Context(), mux.Vars(r)["symbol"])
	if err != nil && !removed {
		WriteError(w, StatusForError(err), err.Error())
		return
	}
	writeMutation(w, http.StatusOK, "removed", removed, h.store.Symbols(), err)
}

// writeMutation reports a watchlist change. A persist error does not undo the change
// and is surfaced as a warning.
func writeMutation(w http.ResponseWriter, status int, field string, changed bool, symbols []string, persistErr error) {
	body := map[string]interface{}{
		"status":  "ok",
		field:     changed,
		"symbols": symbols,
	}
	if persistErr != nil {
		body["warning"] = persistErr.Error()
	}
	WriteJSON(w, status, body)
}
