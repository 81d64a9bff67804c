package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bobmcallan/niftyscope/internal/client"
	"github.com/bobmcallan/niftyscope/internal/detail"
	"github.com/bobmcallan/niftyscope/internal/search"
	"github.com/bobmcallan/niftyscope/internal/summary"
	"github.com/bobmcallan/niftyscope/internal/watchlist"
)

// maxJSONBody caps API request bodies.
const maxJSONBody = 64 << 10

var validate = validator.New()

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// DecodeJSON reads a JSON body into v and validates its struct tags.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid request: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// ViewHeader names the request header a page script uses to group its detail
// loads, so a newer load in the same tab supersedes the older one.
const ViewHeader = "X-View-ID"

// detailContext scopes a detail load to the caller's view. Requests without a
// view header get a view of their own and never interrupt other viewers.
func detailContext(r *http.Request) context.Context {
	view := strings.TrimSpace(r.Header.Get(ViewHeader))
	if view == "" {
		view = uuid.NewString()
	}
	return detail.WithView(r.Context(), view)
}

// StatusForError maps domain errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, watchlist.ErrInvalidSymbol),
		errors.Is(err, summary.ErrInvalidSortKey),
		errors.Is(err, detail.ErrInvalidSymbol),
		errors.Is(err, detail.ErrInvalidPeriod),
		errors.Is(err, detail.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, summary.ErrSuperseded),
		errors.Is(err, detail.ErrSuperseded),
		errors.Is(err, search.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
