package repo

import (
	"context"
	"math"

	"dockwise/internal/domain"
)

// DockStats aggregates active docks by current state.
func (r Repo) DockStats(ctx context.Context) (domain.DockStats, error) {
	var st domain.DockStats
	rows, err := r.DB.QueryContext(ctx,
		`SELECT s.code,COUNT(*) FROM docks d JOIN dock_states s ON s.id=d.state_id WHERE d.active=1 GROUP BY s.code`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return st, err
		}
		st.TotalDocks += n
		switch code {
		case domain.DockStateFree:
			st.FreeDocks = n
		case domain.DockStateReserved:
			st.ReservedDocks = n
		case domain.DockStateInUse:
			st.InUseDocks = n
		case domain.DockStateMaintenance:
			st.MaintenanceDocks = n
		}
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	if st.TotalDocks > 0 {
		occupied := st.TotalDocks - st.FreeDocks
		st.OccupancyPercent = math.Round(float64(occupied)/float64(st.TotalDocks)*10000) / 100
	}
	return st, nil
}

type DailyUsage struct {
	Date      string `json:"date" format:"date"`
	Total     int    `json:"total"`
	Active    int    `json:"active"`
	Completed int    `json:"completed"`
	Cancelled int    `json:"cancelled"`
}

// DailyUsage buckets reservations by the calendar day of their window start.
func (r Repo) DailyUsage(ctx context.Context, from, to string) ([]DailyUsage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT substr(window_start,1,10) AS day,
		COUNT(*),
		SUM(CASE WHEN status=? THEN 1 ELSE 0 END),
		SUM(CASE WHEN status=? THEN 1 ELSE 0 END),
		SUM(CASE WHEN status=? THEN 1 ELSE 0 END)
		FROM reservations WHERE window_start >= ? AND window_start < ?
		GROUP BY day ORDER BY day`,
		domain.ReservationActive, domain.ReservationCompleted, domain.ReservationCancelled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []DailyUsage
	for rows.Next() {
		var d DailyUsage
		if err := rows.Scan(&d.Date, &d.Total, &d.Active, &d.Completed, &d.Cancelled); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

type DockUsage struct {
	DockID       string  `json:"dock_id"`
	DockNumber   int     `json:"dock_number"`
	Reservations int     `json:"reservations"`
	Completed    int     `json:"completed"`
	Cancelled    int     `json:"cancelled"`
	HoursBooked  float64 `json:"hours_booked"`
}

// UsageByDock aggregates reservation counts and booked hours per dock over a
// window. Booked hours come from the reservation windows, not actual arrival
// times.
func (r Repo) UsageByDock(ctx context.Context, from, to string) ([]DockUsage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT d.id,d.number,
		COUNT(rv.id),
		SUM(CASE WHEN rv.status=? THEN 1 ELSE 0 END),
		SUM(CASE WHEN rv.status=? THEN 1 ELSE 0 END),
		COALESCE(SUM((julianday(rv.window_end)-julianday(rv.window_start))*24.0),0)
		FROM docks d
		JOIN reservations rv ON rv.dock_id=d.id AND rv.window_start >= ? AND rv.window_start < ?
		GROUP BY d.id,d.number ORDER BY d.number`,
		domain.ReservationCompleted, domain.ReservationCancelled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []DockUsage
	for rows.Next() {
		var u DockUsage
		if err := rows.Scan(&u.DockID, &u.DockNumber, &u.Reservations, &u.Completed, &u.Cancelled, &u.HoursBooked); err != nil {
			return nil, err
		}
		u.HoursBooked = math.Round(u.HoursBooked*100) / 100
		res = append(res, u)
	}
	return res, rows.Err()
}

// ActiveReservationsAt lists active reservations whose window has started by
// the given instant. Windows that have ended but were never completed still
// count; the dock is not free until completion.
func (r Repo) ActiveReservationsAt(ctx context.Context, at string) ([]domain.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE status=? AND window_start <= ? ORDER BY window_start`,
		domain.ReservationActive, at)
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

// PendingMaintenance lists scheduled and in-progress maintenances ordered by
// scheduled start.
func (r Repo) PendingMaintenance(ctx context.Context) ([]domain.Maintenance, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenances WHERE status IN (?,?) ORDER BY scheduled_start`,
		domain.MaintenanceScheduled, domain.MaintenanceInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Maintenance
	for rows.Next() {
		m, err := scanMaintenance(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) CountReservationsBetween(ctx context.Context, from, to string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE window_start >= ? AND window_start < ?`, from, to).Scan(&n)
	return n, err
}

func (r Repo) CountIncidentsOpen(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incidents WHERE status IN (?,?)`, domain.IncidentOpen, domain.IncidentInProcess).Scan(&n)
	return n, err
}
