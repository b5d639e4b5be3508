// Package audit exports reservation history for staff review.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rezerv/internal/models"
)

// ReservationLister provides reservations and resources for export.
type ReservationLister interface {
	ListByStatus(ctx context.Context, status models.Status, limit int) ([]models.Reservation, error)
	ListActiveResources(ctx context.Context) ([]models.Resource, error)
}

// Exporter builds an Excel workbook with one sheet per reservation status
// plus a resources sheet.
type Exporter struct {
	lister ReservationLister
	writer func() ExcelWriter
	logger zerolog.Logger
}

// NewExporter creates an exporter with a writer factory.
func NewExporter(lister ReservationLister, writerFactory func() ExcelWriter, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		lister: lister,
		writer: writerFactory,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

const exportLimit = 10000

var reservationHeader = []string{
	"ID", "Title", "Requester", "Type", "Resources", "Date", "Start", "End", "Status", "Created",
}

// ExportToFile writes the workbook to path.
func (e *Exporter) ExportToFile(ctx context.Context, path string) error {
	w := e.writer()

	for _, status := range []models.Status{
		models.StatusPending, models.StatusAccepted, models.StatusRejected, models.StatusCancelled,
	} {
		reservations, err := e.lister.ListByStatus(ctx, status, exportLimit)
		if err != nil {
			return fmt.Errorf("list %s reservations: %w", status, err)
		}
		if err := e.writeReservationSheet(w, string(status), reservations); err != nil {
			return err
		}
	}

	resources, err := e.lister.ListActiveResources(ctx)
	if err != nil {
		return fmt.Errorf("list resources: %w", err)
	}
	if err := e.writeResourceSheet(w, resources); err != nil {
		return err
	}

	if err := w.SaveToFile(path); err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	e.logger.Info().Str("path", path).Msg("reservation export written")
	return nil
}

// GenerateFilename creates a filename like "reservations_2026-09.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("reservations_%s.xlsx", t.Format("2006-01"))
}

func (e *Exporter) writeReservationSheet(w ExcelWriter, name string, reservations []models.Reservation) error {
	if err := w.AddSheet(name); err != nil {
		return err
	}
	if err := w.WriteHeader(reservationHeader); err != nil {
		return err
	}
	for _, r := range reservations {
		endMinute := r.Range.EndMinute
		if endMinute == 0 {
			endMinute = models.MinutesPerDay
		}
		row := []interface{}{
			r.ID,
			r.Title,
			r.RequesterName,
			r.RequesterType,
			fmt.Sprintf("%d", len(r.ResourceIDs)),
			r.Range.Date.Format("2006-01-02"),
			models.FormatClock(r.Range.StartMinute),
			models.FormatClock(endMinute),
			string(r.Status),
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeResourceSheet(w ExcelWriter, resources []models.Resource) error {
	if err := w.AddSheet("resources"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"ID", "Kind", "Name", "AutoAccept", "MaxMinutes", "Budget"}); err != nil {
		return err
	}
	for _, r := range resources {
		row := []interface{}{
			r.ID, string(r.Kind), r.Name, r.Policy.AutoAccept,
			r.Policy.MaxMinutesPerRequest, r.Policy.CumulativeBudgetMinutes,
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}
