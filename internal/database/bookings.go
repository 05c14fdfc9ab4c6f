package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bookable/internal/domain"
	"bookable/internal/models"
)

const bookingColumns = `id, service_id, staff_member_id, date, time, participants_count, status,
        cancellation_reason, customer_name, customer_phone, comment, created_at, updated_at, version`

const committedParticipantsQuery = `SELECT COALESCE(SUM(participants_count), 0) FROM bookings
        WHERE service_id = ? AND staff_member_id IS ? AND date = ? AND time = ? AND status IN (?, ?)`

const dailyBookingsQuery = `SELECT COUNT(*) FROM bookings
        WHERE service_id = ? AND date = ? AND status IN (?, ?)`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanBooking(r rowScanner) (*models.Booking, error) {
	var b models.Booking
	var staffID sql.NullInt64
	var dateStr string
	if err := r.Scan(&b.ID, &b.ServiceID, &staffID, &dateStr, &b.Time, &b.ParticipantsCount, &b.Status,
		&b.CancellationReason, &b.CustomerName, &b.CustomerPhone, &b.Comment,
		&b.CreatedAt, &b.UpdatedAt, &b.Version); err != nil {
		return nil, err
	}

	date, err := models.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	b.Date = date
	b.StaffMemberID = nullableID(staffID)
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get booking %d", id), err)
	}
	return b, nil
}

// ListBookings returns bookings ordered by date, time and id.
func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var conds []string
	var args []any

	if filter.ServiceID != 0 {
		conds = append(conds, "service_id = ?")
		args = append(args, filter.ServiceID)
	}
	if filter.StaffMemberID != nil {
		conds = append(conds, "staff_member_id = ?")
		args = append(args, *filter.StaffMemberID)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, filter.From.Format(models.DateFormat))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, filter.To.Format(models.DateFormat))
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, "status IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ")+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, time, id"

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultBookingsPageSize
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storeErr("scan booking", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, storeErr("list bookings", rows.Err())
}

func committedParticipants(ctx context.Context, q querier, key models.SlotKey) (int, error) {
	var committed int
	err := q.QueryRowContext(ctx, committedParticipantsQuery,
		key.ServiceID, staffArg(key.StaffMemberID), key.Date.Format(models.DateFormat), key.Time,
		models.StatusPending, models.StatusConfirmed,
	).Scan(&committed)
	return committed, err
}

// CommittedParticipants sums participants of pending and confirmed bookings for the slot key.
func (db *DB) CommittedParticipants(ctx context.Context, key models.SlotKey) (int, error) {
	committed, err := committedParticipants(ctx, db, key)
	if err != nil {
		return 0, storeErr("committed participants", err)
	}
	return committed, nil
}

// CreateBookingWithLock re-counts committed participants and the daily total
// inside the transaction that inserts the booking.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking, limits models.CapacityLimits) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin booking transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Check slot capacity inside transaction
	committed, err := committedParticipants(ctx, tx, booking.Key())
	if err != nil {
		return storeErr("check capacity in tx", err)
	}
	remaining := limits.MaxParticipants - committed
	if remaining < booking.ParticipantsCount {
		if remaining < 0 {
			remaining = 0
		}
		return fmt.Errorf("%w: %d of %d spots left, %d requested",
			domain.ErrCapacityExceeded, remaining, limits.MaxParticipants, booking.ParticipantsCount)
	}

	// 2. Check the per-day cap of the service
	if limits.MaxBookingsPerDay > 0 {
		var daily int
		err = tx.QueryRowContext(ctx, dailyBookingsQuery,
			booking.ServiceID, booking.Date.Format(models.DateFormat), models.StatusPending, models.StatusConfirmed,
		).Scan(&daily)
		if err != nil {
			return storeErr("check daily limit in tx", err)
		}
		if daily >= limits.MaxBookingsPerDay {
			return fmt.Errorf("%w: daily booking limit reached", domain.ErrCapacityExceeded)
		}
	}

	// 3. Create booking
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (
            service_id, staff_member_id, date, time, participants_count, status, cancellation_reason,
            customer_name, customer_phone, comment, created_at, updated_at, version
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ServiceID,
		staffArg(booking.StaffMemberID),
		booking.Date.Format(models.DateFormat),
		booking.Time,
		booking.ParticipantsCount,
		booking.Status,
		booking.CancellationReason,
		booking.CustomerName,
		booking.CustomerPhone,
		booking.Comment,
		now,
		now,
		1,
	)
	if err != nil {
		return storeErr("insert booking in tx", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storeErr("get last insert id in tx", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit booking", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// UpdateBookingStatusWithVersion moves a booking from fromStatus to toStatus
// only when its version is still the one the caller read.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, fromStatus, toStatus, reason string) error {
	query := `UPDATE bookings
        SET status = ?, cancellation_reason = CASE WHEN ? = '' THEN cancellation_reason ELSE ? END,
            version = version + 1, updated_at = ?
        WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, toStatus, reason, reason, time.Now().UTC(), id, version, fromStatus)
	if err != nil {
		return storeErr("update booking status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("update booking status", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %d at version %d: %w", id, version, domain.ErrConcurrentModification)
	}
	return nil
}

// HasActiveBookingsInWindow reports whether a non-terminal booking on or after
// since starts inside the window on its weekday and staff scope.
func (db *DB) HasActiveBookingsInWindow(ctx context.Context, w *models.AvailabilityWindow, since time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings
        WHERE service_id = ? AND staff_member_id IS ? AND date >= ?
          AND CAST(strftime('%w', date) AS INTEGER) = ?
          AND time >= ? AND time < ? AND status IN (?, ?)`,
		w.ServiceID, staffArg(w.StaffMemberID), since.Format(models.DateFormat),
		w.DayOfWeek, w.StartTime, w.EndTime, models.StatusPending, models.StatusConfirmed,
	).Scan(&count)
	if err != nil {
		return false, storeErr("check window bookings", err)
	}
	return count > 0, nil
}
