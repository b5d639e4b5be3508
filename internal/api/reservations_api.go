package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"rezerv/internal/admission"
	"rezerv/internal/audit"
	"rezerv/internal/metrics"
	"rezerv/internal/models"
)

// CreateReservationRequest is the request body for POST /api/reservations.
type CreateReservationRequest struct {
	RequesterID    string   `json:"requester_id"`
	RequesterType  string   `json:"requester_type,omitempty"`
	RequesterName  string   `json:"requester_name,omitempty"`
	RequesterPhone string   `json:"requester_phone,omitempty"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	ResourceIDs    []string `json:"resource_ids"`
	Date           string   `json:"date"`       // Format: YYYY-MM-DD
	StartTime      string   `json:"start_time"` // Format: HHMM or HH:MM
	EndTime        string   `json:"end_time"`   // Format: HHMM or HH:MM; "0000" ends the day
}

// TransitionRequest is the request body for POST /api/reservations/{id}/status.
type TransitionRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

// handleReservations creates or lists reservations.
// POST /api/reservations | GET /api/reservations?resource=ID&date=YYYY-MM-DD
func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateReservation(w, r)
	case http.MethodGet:
		s.handleListReservations(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_reservation")

	var req CreateReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.RequesterID == "" || req.Title == "" || len(req.ResourceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "requester_id, title and resource_ids are required")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	timeRange, err := models.NewTimeRange(date, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservation, err := s.admitter.Admit(r.Context(), admission.Draft{
		RequesterID:    req.RequesterID,
		RequesterType:  req.RequesterType,
		RequesterName:  req.RequesterName,
		RequesterPhone: req.RequesterPhone,
		Title:          req.Title,
		Description:    req.Description,
		ResourceIDs:    req.ResourceIDs,
		Range:          timeRange,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_reservations")

	resourceID := r.URL.Query().Get("resource")
	if resourceID == "" {
		writeError(w, http.StatusBadRequest, "resource query parameter is required")
		return
	}

	dateStr := r.URL.Query().Get("date")
	date := time.Now()
	if dateStr != "" {
		var err error
		date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	}

	reservations, err := s.db.FindByResourceAndDateWindow(r.Context(), resourceID, date)
	if err != nil {
		s.logger.Error().Err(err).Msg("list reservations")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

// handleReservationStatus applies a status transition.
// POST /api/reservations/{id}/status
func (s *HTTPServer) handleReservationStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("transition_reservation")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api / reservations / {id} / status
	if len(parts) != 4 || parts[3] != "status" || parts[2] == "" {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	id := parts[2]

	var req TransitionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	target := models.Status(req.Status)
	switch target {
	case models.StatusAccepted, models.StatusRejected, models.StatusCancelled:
	default:
		writeError(w, http.StatusBadRequest, "status must be accepted, rejected or cancelled")
		return
	}

	reservation, err := s.transitioner.Transition(r.Context(), id, target, req.Comment)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// handleExport writes the reservation history workbook to the export dir.
// POST /api/export
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := filepath.Join(s.exportDir, audit.GenerateFilename(time.Now()))
	if err := s.exporter.ExportToFile(r.Context(), path); err != nil {
		s.logger.Error().Err(err).Msg("export reservations")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// handleResources lists active resources with their policies.
// GET /api/resources
func (s *HTTPServer) handleResources(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("resources")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resources, err := s.db.ListActiveResources(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list resources")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}
