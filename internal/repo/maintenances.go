package repo

import (
	"context"
	"database/sql"
	"strings"

	"dockwise/internal/domain"
)

const maintenanceColumns = `id,dock_id,kind,description,scheduled_start,scheduled_end,actual_end,status,technician,cost,notes,registered_by,registered_at`

func scanMaintenance(scan func(dest ...any) error) (domain.Maintenance, error) {
	var m domain.Maintenance
	var actualEnd, technician, notes sql.NullString
	var cost sql.NullFloat64
	err := scan(&m.ID, &m.DockID, &m.Kind, &m.Description, &m.ScheduledStart, &m.ScheduledEnd,
		&actualEnd, &m.Status, &technician, &cost, &notes, &m.RegisteredBy, &m.RegisteredAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if actualEnd.Valid {
		m.ActualEnd = &actualEnd.String
	}
	if technician.Valid {
		m.Technician = &technician.String
	}
	if cost.Valid {
		m.Cost = &cost.Float64
	}
	if notes.Valid {
		m.Notes = &notes.String
	}
	return m, nil
}

func (r Repo) InsertMaintenanceTx(ctx context.Context, tx *sql.Tx, m domain.Maintenance) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO maintenances(`+maintenanceColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.DockID, m.Kind, m.Description, m.ScheduledStart, m.ScheduledEnd,
		nullableStringPtr(m.ActualEnd), m.Status, nullableStringPtr(m.Technician), nullableFloatPtr(m.Cost), nullableStringPtr(m.Notes),
		m.RegisteredBy, m.RegisteredAt)
	return err
}

func (r Repo) GetMaintenance(ctx context.Context, id string) (domain.Maintenance, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+maintenanceColumns+` FROM maintenances WHERE id=?`, id)
	return scanMaintenance(row.Scan)
}

func (r Repo) GetMaintenanceTx(ctx context.Context, tx *sql.Tx, id string) (domain.Maintenance, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+maintenanceColumns+` FROM maintenances WHERE id=?`, id)
	return scanMaintenance(row.Scan)
}

type MaintenanceFilters struct {
	DockID string
	Status string
	Kind   string
	Limit  int
}

func (r Repo) ListMaintenances(ctx context.Context, f MaintenanceFilters) ([]domain.Maintenance, error) {
	var clauses []string
	var args []any
	if f.DockID != "" {
		clauses = append(clauses, "dock_id=?")
		args = append(args, f.DockID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind=?")
		args = append(args, f.Kind)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + maintenanceColumns + ` FROM maintenances ` + where + ` ORDER BY scheduled_start DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
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

func (r Repo) UpdateMaintenanceTx(ctx context.Context, tx *sql.Tx, m domain.Maintenance) error {
	res, err := tx.ExecContext(ctx, `UPDATE maintenances SET kind=?,description=?,scheduled_start=?,scheduled_end=?,actual_end=?,status=?,technician=?,cost=?,notes=? WHERE id=?`,
		m.Kind, m.Description, m.ScheduledStart, m.ScheduledEnd, nullableStringPtr(m.ActualEnd), m.Status,
		nullableStringPtr(m.Technician), nullableFloatPtr(m.Cost), nullableStringPtr(m.Notes), m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOpenMaintenanceTx counts scheduled or in-progress maintenances on a
// dock, excluding excludeID. Used to decide whether cancelling one releases
// the dock.
func (r Repo) CountOpenMaintenanceTx(ctx context.Context, tx *sql.Tx, dockID, excludeID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM maintenances WHERE dock_id=? AND status IN (?,?) AND id<>?`,
		dockID, domain.MaintenanceScheduled, domain.MaintenanceInProgress, excludeID).Scan(&n)
	return n, err
}
