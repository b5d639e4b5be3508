package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rezerv/internal/models"
)

const reservationColumns = `id, requester_id, requester_type, requester_name, requester_phone,
	title, description, date, start_minute, end_minute, status, staff_comment,
	reminder_sent, version, created_at, updated_at`

const reservationColumnsR = `r.id, r.requester_id, r.requester_type, r.requester_name, r.requester_phone,
	r.title, r.description, r.date, r.start_minute, r.end_minute, r.status, r.staff_comment,
	r.reminder_sent, r.version, r.created_at, r.updated_at`

// CreateReservation inserts the reservation and its bundle membership rows.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	startAbs, endAbs := r.Range.Abs()
	_, err := db.q(ctx).ExecContext(ctx, `
		INSERT INTO reservations (
			id, requester_id, requester_type, requester_name, requester_phone,
			title, description, date, start_minute, end_minute, start_abs, end_abs,
			status, staff_comment, reminder_sent, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RequesterID, r.RequesterType, r.RequesterName, r.RequesterPhone,
		r.Title, r.Description, dateOnly(r.Range.Date), r.Range.StartMinute, r.Range.EndMinute,
		startAbs, endAbs, string(r.Status), r.StaffComment, r.ReminderSent, r.Version,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	for _, resourceID := range r.ResourceIDs {
		if _, err := db.q(ctx).ExecContext(ctx,
			"INSERT INTO reservation_resources (reservation_id, resource_id) VALUES (?, ?)",
			r.ID, resourceID,
		); err != nil {
			return fmt.Errorf("insert reservation resource %s: %w", resourceID, err)
		}
	}
	return nil
}

// GetReservation returns a reservation by id, or nil if unknown.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.q(ctx).QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.ResourceIDs, err = db.reservationResources(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// FindByResourceAndDateWindow returns the resource's reservations whose
// ranges fall on the given date or either adjacent date, so
// midnight-crossing ranges stay visible to the overlap check.
func (db *DB) FindByResourceAndDateWindow(ctx context.Context, resourceID string, date time.Time) ([]models.Reservation, error) {
	windowStart := (models.DayNumber(date) - 1) * models.MinutesPerDay
	windowEnd := (models.DayNumber(date) + 2) * models.MinutesPerDay

	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT `+reservationColumnsR+`
		FROM reservations r
		JOIN reservation_resources rr ON rr.reservation_id = r.id
		WHERE rr.resource_id = ?
		AND r.start_abs < ? AND r.end_abs > ?
		ORDER BY r.start_abs`,
		resourceID, windowEnd, windowStart,
	)
	if err != nil {
		return nil, fmt.Errorf("query reservations by resource: %w", err)
	}
	return db.collectReservations(ctx, rows)
}

// ListByRequesterAndResource returns the requester's reservations on the
// resource across all dates. Status filtering is the caller's concern.
func (db *DB) ListByRequesterAndResource(ctx context.Context, requesterID, resourceID string) ([]models.Reservation, error) {
	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT `+reservationColumnsR+`
		FROM reservations r
		JOIN reservation_resources rr ON rr.reservation_id = r.id
		WHERE r.requester_id = ? AND rr.resource_id = ?
		ORDER BY r.start_abs`,
		requesterID, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query reservations by requester: %w", err)
	}
	return db.collectReservations(ctx, rows)
}

// ListByStatus returns reservations in the given status, newest first.
func (db *DB) ListByStatus(ctx context.Context, status models.Status, limit int) ([]models.Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.q(ctx).QueryContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE status = ? ORDER BY created_at DESC LIMIT ?",
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query reservations by status: %w", err)
	}
	return db.collectReservations(ctx, rows)
}

// UpdateStatusWithVersion updates status and staff comment only when the
// stored version still matches, and bumps the version.
func (db *DB) UpdateStatusWithVersion(ctx context.Context, id string, version int64, status models.Status, comment string) error {
	res, err := db.q(ctx).ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, staff_comment = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(status), comment, time.Now(), id, version,
	)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: reservation %s version %d", ErrVersionConflict, id, version)
	}
	return nil
}

// GetUpcomingAccepted returns accepted reservations starting within the
// given duration that have not been reminded yet.
func (db *DB) GetUpcomingAccepted(ctx context.Context, within time.Duration) ([]models.Reservation, error) {
	now := time.Now()
	nowAbs := models.DayNumber(now)*models.MinutesPerDay + int64(now.Hour()*60+now.Minute())
	untilAbs := nowAbs + int64(within.Minutes())

	rows, err := db.q(ctx).QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = 'accepted' AND reminder_sent = 0
		AND start_abs >= ? AND start_abs < ?
		ORDER BY start_abs`,
		nowAbs, untilAbs,
	)
	if err != nil {
		return nil, fmt.Errorf("query upcoming reservations: %w", err)
	}
	return db.collectReservations(ctx, rows)
}

// MarkReminderSent flags a reservation as reminded.
func (db *DB) MarkReminderSent(ctx context.Context, id string) error {
	_, err := db.q(ctx).ExecContext(ctx,
		"UPDATE reservations SET reminder_sent = 1, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

func (db *DB) reservationResources(ctx context.Context, reservationID string) ([]string, error) {
	rows, err := db.q(ctx).QueryContext(ctx,
		"SELECT resource_id FROM reservation_resources WHERE reservation_id = ? ORDER BY resource_id",
		reservationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query reservation resources: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) collectReservations(ctx context.Context, rows *sql.Rows) ([]models.Reservation, error) {
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reservations {
		ids, err := db.reservationResources(ctx, reservations[i].ID)
		if err != nil {
			return nil, err
		}
		reservations[i].ResourceIDs = ids
	}
	return reservations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var status string
	var description, staffComment, requesterType, requesterName, requesterPhone sql.NullString
	err := row.Scan(
		&r.ID, &r.RequesterID, &requesterType, &requesterName, &requesterPhone,
		&r.Title, &description, &r.Range.Date, &r.Range.StartMinute, &r.Range.EndMinute,
		&status, &staffComment, &r.ReminderSent, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.Status(status)
	r.RequesterType = requesterType.String
	r.RequesterName = requesterName.String
	r.RequesterPhone = requesterPhone.String
	r.Description = description.String
	r.StaffComment = staffComment.String
	return &r, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

