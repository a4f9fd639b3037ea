package repo

import (
	"context"
	"database/sql"
	"strings"

	"dockwise/internal/domain"
)

const reservationColumns = `id,dock_id,user_id,window_start,window_end,status,vehicle_plate,driver_name,driver_phone,driver_document,cargo_type,cargo_weight,cargo_description,notes,created_at,cancelled_at,cancelled_by,cancel_reason,completed_at`

func scanReservation(scan func(dest ...any) error) (domain.Reservation, error) {
	var rv domain.Reservation
	var plate, driverName, driverPhone, driverDoc, cargoType, cargoDesc, notes sql.NullString
	var cancelledAt, cancelledBy, cancelReason, completedAt sql.NullString
	var cargoWeight sql.NullFloat64
	err := scan(&rv.ID, &rv.DockID, &rv.UserID, &rv.WindowStart, &rv.WindowEnd, &rv.Status,
		&plate, &driverName, &driverPhone, &driverDoc, &cargoType, &cargoWeight, &cargoDesc, &notes,
		&rv.CreatedAt, &cancelledAt, &cancelledBy, &cancelReason, &completedAt)
	if err == sql.ErrNoRows {
		return rv, ErrNotFound
	}
	if err != nil {
		return rv, err
	}
	if plate.Valid {
		rv.VehiclePlate = &plate.String
	}
	if driverName.Valid {
		rv.DriverName = &driverName.String
	}
	if driverPhone.Valid {
		rv.DriverPhone = &driverPhone.String
	}
	if driverDoc.Valid {
		rv.DriverDocument = &driverDoc.String
	}
	if cargoType.Valid {
		rv.CargoType = &cargoType.String
	}
	if cargoWeight.Valid {
		rv.CargoWeight = &cargoWeight.Float64
	}
	if cargoDesc.Valid {
		rv.CargoDescription = &cargoDesc.String
	}
	if notes.Valid {
		rv.Notes = &notes.String
	}
	if cancelledAt.Valid {
		rv.CancelledAt = &cancelledAt.String
	}
	if cancelledBy.Valid {
		rv.CancelledBy = &cancelledBy.String
	}
	if cancelReason.Valid {
		rv.CancelReason = &cancelReason.String
	}
	if completedAt.Valid {
		rv.CompletedAt = &completedAt.String
	}
	return rv, nil
}

func (r Repo) InsertReservationTx(ctx context.Context, tx *sql.Tx, rv domain.Reservation) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO reservations(`+reservationColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rv.ID, rv.DockID, rv.UserID, rv.WindowStart, rv.WindowEnd, rv.Status,
		nullableStringPtr(rv.VehiclePlate), nullableStringPtr(rv.DriverName), nullableStringPtr(rv.DriverPhone), nullableStringPtr(rv.DriverDocument),
		nullableStringPtr(rv.CargoType), nullableFloatPtr(rv.CargoWeight), nullableStringPtr(rv.CargoDescription), nullableStringPtr(rv.Notes),
		rv.CreatedAt, nullableStringPtr(rv.CancelledAt), nullableStringPtr(rv.CancelledBy), nullableStringPtr(rv.CancelReason), nullableStringPtr(rv.CompletedAt))
	return err
}

func (r Repo) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=?`, id)
	return scanReservation(row.Scan)
}

func (r Repo) GetReservationTx(ctx context.Context, tx *sql.Tx, id string) (domain.Reservation, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=?`, id)
	return scanReservation(row.Scan)
}

type ReservationFilters struct {
	DockID     string
	UserID     string
	Status     string
	From       string
	To         string
	Limit      int
	CursorID   string
	CursorTime string
}

func (r Repo) ListReservations(ctx context.Context, f ReservationFilters) ([]domain.Reservation, error) {
	var clauses []string
	var args []any
	if f.DockID != "" {
		clauses = append(clauses, "dock_id=?")
		args = append(args, f.DockID)
	}
	if f.UserID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.From != "" {
		clauses = append(clauses, "window_end > ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "window_start < ?")
		args = append(args, f.To)
	}
	if f.CursorTime != "" && f.CursorID != "" {
		clauses = append(clauses, "(window_start < ? OR (window_start = ? AND id < ?))")
		args = append(args, f.CursorTime, f.CursorTime, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations ` + where + ` ORDER BY window_start DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Reservation
	for rows.Next() {
		rv, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rv)
	}
	return res, rows.Err()
}

// CountOverlappingTx counts active reservations on a dock whose half-open
// window [window_start, window_end) intersects [start, end). A reservation
// ending exactly at start, or starting exactly at end, does not overlap.
func (r Repo) CountOverlappingTx(ctx context.Context, tx *sql.Tx, dockID, start, end, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE dock_id=? AND status=? AND window_start < ? AND window_end > ?`
	args := []any{dockID, domain.ReservationActive, end, start}
	if excludeID != "" {
		query += ` AND id<>?`
		args = append(args, excludeID)
	}
	var n int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// CountOverlapping is the read-only variant used by the availability check.
func (r Repo) CountOverlapping(ctx context.Context, dockID, start, end string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE dock_id=? AND status=? AND window_start < ? AND window_end > ?`,
		dockID, domain.ReservationActive, end, start).Scan(&n)
	return n, err
}

func (r Repo) CancelReservationTx(ctx context.Context, tx *sql.Tx, id, cancelledAt, cancelledBy, reason string) error {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET status=?,cancelled_at=?,cancelled_by=?,cancel_reason=? WHERE id=?`,
		domain.ReservationCancelled, cancelledAt, cancelledBy, reason, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CompleteReservationTx(ctx context.Context, tx *sql.Tx, id, completedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET status=?,completed_at=? WHERE id=?`,
		domain.ReservationCompleted, completedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
