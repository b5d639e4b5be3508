// Package api exposes the admission and workflow services over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"rezerv/internal/admission"
	"rezerv/internal/audit"
	"rezerv/internal/database"
	"rezerv/internal/models"
	"rezerv/internal/workflow"
)

// Admitter runs admission for new reservation requests.
type Admitter interface {
	Admit(ctx context.Context, draft admission.Draft) (*models.Reservation, error)
}

// Transitioner applies status transitions.
type Transitioner interface {
	Transition(ctx context.Context, id string, target models.Status, staffComment string) (*models.Reservation, error)
}

// HTTPServer serves the reservation API.
type HTTPServer struct {
	admitter     Admitter
	transitioner Transitioner
	db           *database.DB
	exporter     *audit.Exporter
	exportDir    string
	logger       zerolog.Logger
}

// NewHTTPServer creates the API server.
func NewHTTPServer(admitter Admitter, transitioner Transitioner, db *database.DB, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		admitter:     admitter,
		transitioner: transitioner,
		db:           db,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// EnableExport turns on the audit export endpoint.
func (s *HTTPServer) EnableExport(exporter *audit.Exporter, dir string) {
	s.exporter = exporter
	s.exportDir = dir
}

// Routes registers all API handlers on the mux.
func (s *HTTPServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/reservations", s.handleReservations)
	mux.HandleFunc("/api/reservations/", s.handleReservationStatus)
	mux.HandleFunc("/api/resources", s.handleResources)
	if s.exporter != nil {
		mux.HandleFunc("/api/export", s.handleExport)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError maps domain errors onto HTTP status codes. All admission
// and workflow failures are expected, caller-recoverable conditions.
func statusForError(err error) int {
	switch {
	case errors.Is(err, admission.ErrResourceNotFound),
		errors.Is(err, workflow.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, admission.ErrRegionRestricted):
		return http.StatusForbidden
	case errors.Is(err, admission.ErrOverlapConflict),
		errors.Is(err, workflow.ErrInvalidStateTransition),
		errors.Is(err, database.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, admission.ErrExceedsMaxDuration),
		errors.Is(err, admission.ErrExceedsCumulativeBudget),
		errors.Is(err, models.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
