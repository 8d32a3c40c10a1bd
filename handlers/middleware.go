package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/satheeshds/invoicing/billing"
	"github.com/satheeshds/invoicing/lock"
	"github.com/satheeshds/invoicing/models"
)

// Response is the standard JSON envelope for all API responses.
type Response struct {
	Data   any                `json:"data"`
	Error  string             `json:"error,omitempty"`
	Fields models.FieldErrors `json:"fields,omitempty"`
}

// Billing is the shared service used by all handlers.
var Billing *billing.Service

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Data: data})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Error: msg})
}

// writeServiceError maps billing errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *billing.ValidationError
	var cerr *billing.ConflictError
	switch {
	case errors.As(err, &verr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(Response{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &cerr):
		writeError(w, http.StatusBadRequest, cerr.Msg)
	case errors.Is(err, billing.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, billing.ErrConcurrentUpdate), errors.Is(err, lock.ErrNotObtained):
		writeError(w, http.StatusConflict, "invoice is being modified, please retry")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// page reads page and limit query parameters.
func page(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// Page is a paginated list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

func paginate[T any](all []T, page, limit int) Page[T] {
	p := Page[T]{
		Items:      []T{},
		Total:      len(all),
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(len(all)) / float64(limit))),
	}
	// compare pages rather than offsets so a huge page cannot overflow
	if page >= 1 && page <= p.TotalPages {
		start := (page - 1) * limit
		p.Items = all[start:min(start+limit, len(all))]
	}
	return p
}

// BasicAuth is middleware that enforces HTTP Basic Authentication.
func BasicAuth(user, pass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// If no credentials are configured, skip auth
		if user == "" && pass == "" {
			slog.Warn("AUTH_USER and AUTH_PASS not set, API is unauthenticated")
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				w.Header().Set("WWW-Authenticate", `Basic realm="invoicing"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
