package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookable/internal/models"
)

const windowColumns = `id, service_id, day_of_week, start_time, end_time, staff_member_id, is_active, created_at, updated_at`

func scanWindow(r rowScanner) (*models.AvailabilityWindow, error) {
	var w models.AvailabilityWindow
	var staffID sql.NullInt64
	if err := r.Scan(&w.ID, &w.ServiceID, &w.DayOfWeek, &w.StartTime, &w.EndTime, &staffID,
		&w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.StaffMemberID = nullableID(staffID)
	return &w, nil
}

func (db *DB) queryWindows(ctx context.Context, op, query string, args ...any) ([]*models.AvailabilityWindow, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	windows := make([]*models.AvailabilityWindow, 0)
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		windows = append(windows, w)
	}
	return windows, storeErr(op, rows.Err())
}

func (db *DB) GetWindow(ctx context.Context, id int64) (*models.AvailabilityWindow, error) {
	row := db.QueryRowContext(ctx, `SELECT `+windowColumns+` FROM availability_windows WHERE id = ?`, id)
	w, err := scanWindow(row)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get window %d", id), err)
	}
	return w, nil
}

// ListActiveWindows returns active windows of one weekday for the exact staff scope.
func (db *DB) ListActiveWindows(ctx context.Context, serviceID int64, dayOfWeek int, staffMemberID *int64) ([]*models.AvailabilityWindow, error) {
	return db.queryWindows(ctx, "list active windows",
		`SELECT `+windowColumns+` FROM availability_windows
        WHERE service_id = ? AND day_of_week = ? AND staff_member_id IS ? AND is_active = 1
        ORDER BY start_time, id`,
		serviceID, dayOfWeek, staffArg(staffMemberID))
}

// ListServiceWindows returns every window of a service, inactive ones included.
func (db *DB) ListServiceWindows(ctx context.Context, serviceID int64) ([]*models.AvailabilityWindow, error) {
	return db.queryWindows(ctx, "list service windows",
		`SELECT `+windowColumns+` FROM availability_windows
        WHERE service_id = ? ORDER BY day_of_week, start_time, id`,
		serviceID)
}

func (db *DB) CreateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `INSERT INTO availability_windows (
            service_id, day_of_week, start_time, end_time, staff_member_id, is_active, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ServiceID, w.DayOfWeek, w.StartTime, w.EndTime, staffArg(w.StaffMemberID), w.IsActive, now, now)
	if err != nil {
		return storeErr("create window", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storeErr("create window", err)
	}
	w.ID = id
	w.CreatedAt = now
	w.UpdatedAt = now
	return nil
}

func (db *DB) UpdateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `UPDATE availability_windows SET
            day_of_week = ?, start_time = ?, end_time = ?, staff_member_id = ?, is_active = ?, updated_at = ?
        WHERE id = ?`,
		w.DayOfWeek, w.StartTime, w.EndTime, staffArg(w.StaffMemberID), w.IsActive, now, w.ID)
	if err != nil {
		return storeErr("update window", err)
	}
	if err := expectRow(result, fmt.Sprintf("update window %d", w.ID)); err != nil {
		return err
	}
	w.UpdatedAt = now
	return nil
}

func (db *DB) DeactivateWindow(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `UPDATE availability_windows SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return storeErr("deactivate window", err)
	}
	return expectRow(result, fmt.Sprintf("deactivate window %d", id))
}

func (db *DB) DeleteWindow(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete window", err)
	}
	return expectRow(result, fmt.Sprintf("delete window %d", id))
}
