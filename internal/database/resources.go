package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rezerv/internal/models"
)

const resourceColumns = `id, kind, name, description, active, max_minutes_per_request,
	cumulative_budget_minutes, max_concurrent, auto_accept, restricted_to, created_at, updated_at`

// CreateResource inserts a place or equipment item with its usage policy.
func (db *DB) CreateResource(ctx context.Context, r *models.Resource) error {
	_, err := db.q(ctx).ExecContext(ctx, `
		INSERT INTO resources (
			id, kind, name, description, active, max_minutes_per_request,
			cumulative_budget_minutes, max_concurrent, auto_accept, restricted_to,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.Name, r.Description, r.Active,
		r.Policy.MaxMinutesPerRequest, r.Policy.CumulativeBudgetMinutes,
		r.Policy.MaxConcurrent, r.Policy.AutoAccept, joinRestricted(r.Policy.RestrictedTo),
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

// GetResource returns a resource by id, or nil if unknown.
func (db *DB) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	row := db.q(ctx).QueryRowContext(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE id = ?", id)
	r, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListActiveResources returns all active resources ordered by name.
func (db *DB) ListActiveResources(ctx context.Context) ([]models.Resource, error) {
	rows, err := db.q(ctx).QueryContext(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE active = 1 ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *r)
	}
	return resources, rows.Err()
}

// UpdateResourcePolicy replaces the usage policy of a resource.
func (db *DB) UpdateResourcePolicy(ctx context.Context, id string, policy models.UsagePolicy) error {
	res, err := db.q(ctx).ExecContext(ctx, `
		UPDATE resources
		SET max_minutes_per_request = ?, cumulative_budget_minutes = ?,
		    max_concurrent = ?, auto_accept = ?, restricted_to = ?, updated_at = ?
		WHERE id = ?`,
		policy.MaxMinutesPerRequest, policy.CumulativeBudgetMinutes,
		policy.MaxConcurrent, policy.AutoAccept, joinRestricted(policy.RestrictedTo),
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update resource policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("resource %s not found", id)
	}
	return nil
}

// DeactivateResource hides a resource from admission without deleting its
// reservation history.
func (db *DB) DeactivateResource(ctx context.Context, id string) error {
	_, err := db.q(ctx).ExecContext(ctx,
		"UPDATE resources SET active = 0, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

func scanResource(row rowScanner) (*models.Resource, error) {
	var r models.Resource
	var kind string
	var description, restrictedTo sql.NullString
	err := row.Scan(
		&r.ID, &kind, &r.Name, &description, &r.Active,
		&r.Policy.MaxMinutesPerRequest, &r.Policy.CumulativeBudgetMinutes,
		&r.Policy.MaxConcurrent, &r.Policy.AutoAccept, &restrictedTo,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = models.ResourceKind(kind)
	r.Description = description.String
	if restrictedTo.Valid && restrictedTo.String != "" {
		r.Policy.RestrictedTo = strings.Split(restrictedTo.String, ",")
	}
	return &r, nil
}

func joinRestricted(types []string) string {
	return strings.Join(types, ",")
}
