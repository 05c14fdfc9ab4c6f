package database

import (
	"context"
	"fmt"
	"time"

	"bookable/internal/domain"
	"bookable/internal/models"
)

const serviceColumns = `id, name, description, duration_minutes, max_participants, buffer_before_minutes,
        buffer_after_minutes, advance_booking_days, cancellation_deadline_hours, requires_approval,
        allow_cancellation, requires_staff, max_bookings_per_day, timezone, is_active, created_at, updated_at`

func scanService(r rowScanner) (*models.ServiceDefinition, error) {
	var s models.ServiceDefinition
	if err := r.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.MaxParticipants,
		&s.BufferBeforeMinutes, &s.BufferAfterMinutes, &s.AdvanceBookingDays, &s.CancellationDeadlineHours,
		&s.RequiresApproval, &s.AllowCancellation, &s.RequiresStaff, &s.MaxBookingsPerDay, &s.Timezone,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.ServiceDefinition, error) {
	row := db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	svc, err := scanService(row)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get service %d", id), err)
	}
	return svc, nil
}

func (db *DB) GetServiceByName(ctx context.Context, name string) (*models.ServiceDefinition, error) {
	row := db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE name = ?`, name)
	svc, err := scanService(row)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get service %q", name), err)
	}
	return svc, nil
}

func (db *DB) ListServices(ctx context.Context, activeOnly bool) ([]*models.ServiceDefinition, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list services", err)
	}
	defer rows.Close()

	services := make([]*models.ServiceDefinition, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, storeErr("scan service", err)
		}
		services = append(services, svc)
	}
	return services, storeErr("list services", rows.Err())
}

func (db *DB) CreateService(ctx context.Context, svc *models.ServiceDefinition) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `INSERT INTO services (
            name, description, duration_minutes, max_participants, buffer_before_minutes,
            buffer_after_minutes, advance_booking_days, cancellation_deadline_hours, requires_approval,
            allow_cancellation, requires_staff, max_bookings_per_day, timezone, is_active, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		svc.Name, svc.Description, svc.DurationMinutes, svc.MaxParticipants, svc.BufferBeforeMinutes,
		svc.BufferAfterMinutes, svc.AdvanceBookingDays, svc.CancellationDeadlineHours, svc.RequiresApproval,
		svc.AllowCancellation, svc.RequiresStaff, svc.MaxBookingsPerDay, svc.Timezone, svc.IsActive, now, now,
	)
	if err != nil {
		return storeErr("create service", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storeErr("create service", err)
	}
	svc.ID = id
	svc.CreatedAt = now
	svc.UpdatedAt = now
	return nil
}

func (db *DB) UpdateService(ctx context.Context, svc *models.ServiceDefinition) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `UPDATE services SET
            name = ?, description = ?, duration_minutes = ?, max_participants = ?, buffer_before_minutes = ?,
            buffer_after_minutes = ?, advance_booking_days = ?, cancellation_deadline_hours = ?,
            requires_approval = ?, allow_cancellation = ?, requires_staff = ?, max_bookings_per_day = ?,
            timezone = ?, is_active = ?, updated_at = ?
        WHERE id = ?`,
		svc.Name, svc.Description, svc.DurationMinutes, svc.MaxParticipants, svc.BufferBeforeMinutes,
		svc.BufferAfterMinutes, svc.AdvanceBookingDays, svc.CancellationDeadlineHours,
		svc.RequiresApproval, svc.AllowCancellation, svc.RequiresStaff, svc.MaxBookingsPerDay,
		svc.Timezone, svc.IsActive, now, svc.ID,
	)
	if err != nil {
		return storeErr("update service", err)
	}
	if err := expectRow(result, fmt.Sprintf("update service %d", svc.ID)); err != nil {
		return err
	}
	svc.UpdatedAt = now
	return nil
}

func (db *DB) DeactivateService(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `UPDATE services SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return storeErr("deactivate service", err)
	}
	return expectRow(result, fmt.Sprintf("deactivate service %d", id))
}

func scanStaff(r rowScanner) (*models.StaffMember, error) {
	var m models.StaffMember
	if err := r.Scan(&m.ID, &m.ServiceID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *DB) GetStaffMember(ctx context.Context, id int64) (*models.StaffMember, error) {
	row := db.QueryRowContext(ctx, `SELECT id, service_id, name, is_active, created_at, updated_at
        FROM staff_members WHERE id = ?`, id)
	m, err := scanStaff(row)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get staff member %d", id), err)
	}
	return m, nil
}

func (db *DB) ListStaffMembers(ctx context.Context, serviceID int64) ([]*models.StaffMember, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, service_id, name, is_active, created_at, updated_at
        FROM staff_members WHERE service_id = ? ORDER BY name, id`, serviceID)
	if err != nil {
		return nil, storeErr("list staff members", err)
	}
	defer rows.Close()

	members := make([]*models.StaffMember, 0)
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, storeErr("scan staff member", err)
		}
		members = append(members, m)
	}
	return members, storeErr("list staff members", rows.Err())
}

func (db *DB) CreateStaffMember(ctx context.Context, member *models.StaffMember) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `INSERT INTO staff_members (service_id, name, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`, member.ServiceID, member.Name, member.IsActive, now, now)
	if err != nil {
		return storeErr("create staff member", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storeErr("create staff member", err)
	}
	member.ID = id
	member.CreatedAt = now
	member.UpdatedAt = now
	return nil
}

func (db *DB) DeactivateStaffMember(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `UPDATE staff_members SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return storeErr("deactivate staff member", err)
	}
	return expectRow(result, fmt.Sprintf("deactivate staff member %d", id))
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectRow(result rowsAffecter, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
