package repo

import (
	"context"
	"database/sql"
	"strings"

	"dockwise/internal/domain"
)

const incidentColumns = `id,dock_id,reservation_id,kind,description,severity,status,occurred_at,resolved_at,reported_by,assigned_to,resolution,created_at`

func scanIncident(scan func(dest ...any) error) (domain.Incident, error) {
	var in domain.Incident
	var dockID, reservationID, resolvedAt, assignedTo, resolution sql.NullString
	err := scan(&in.ID, &dockID, &reservationID, &in.Kind, &in.Description, &in.Severity, &in.Status,
		&in.OccurredAt, &resolvedAt, &in.ReportedBy, &assignedTo, &resolution, &in.CreatedAt)
	if err == sql.ErrNoRows {
		return in, ErrNotFound
	}
	if err != nil {
		return in, err
	}
	if dockID.Valid {
		in.DockID = &dockID.String
	}
	if reservationID.Valid {
		in.ReservationID = &reservationID.String
	}
	if resolvedAt.Valid {
		in.ResolvedAt = &resolvedAt.String
	}
	if assignedTo.Valid {
		in.AssignedTo = &assignedTo.String
	}
	if resolution.Valid {
		in.Resolution = &resolution.String
	}
	return in, nil
}

func (r Repo) InsertIncidentTx(ctx context.Context, tx *sql.Tx, in domain.Incident) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO incidents(`+incidentColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		in.ID, nullableStringPtr(in.DockID), nullableStringPtr(in.ReservationID), in.Kind, in.Description, in.Severity, in.Status,
		in.OccurredAt, nullableStringPtr(in.ResolvedAt), in.ReportedBy, nullableStringPtr(in.AssignedTo), nullableStringPtr(in.Resolution), in.CreatedAt)
	return err
}

func (r Repo) GetIncident(ctx context.Context, id string) (domain.Incident, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id=?`, id)
	return scanIncident(row.Scan)
}

func (r Repo) GetIncidentTx(ctx context.Context, tx *sql.Tx, id string) (domain.Incident, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id=?`, id)
	return scanIncident(row.Scan)
}

type IncidentFilters struct {
	DockID     string
	Status     string
	Severity   string
	ReportedBy string
	Limit      int
}

func (r Repo) ListIncidents(ctx context.Context, f IncidentFilters) ([]domain.Incident, error) {
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
	if f.Severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, f.Severity)
	}
	if f.ReportedBy != "" {
		clauses = append(clauses, "reported_by=?")
		args = append(args, f.ReportedBy)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + incidentColumns + ` FROM incidents ` + where + ` ORDER BY occurred_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Incident
	for rows.Next() {
		in, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, in)
	}
	return res, rows.Err()
}

func (r Repo) UpdateIncidentTx(ctx context.Context, tx *sql.Tx, in domain.Incident) error {
	res, err := tx.ExecContext(ctx, `UPDATE incidents SET status=?,assigned_to=?,resolution=?,resolved_at=? WHERE id=?`,
		in.Status, nullableStringPtr(in.AssignedTo), nullableStringPtr(in.Resolution), nullableStringPtr(in.ResolvedAt), in.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountIncidentsByStatus groups incidents for the summary report.
func (r Repo) CountIncidentsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status,COUNT(*) FROM incidents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		res[status] = n
	}
	return res, rows.Err()
}

func (r Repo) CountIncidentsBySeverity(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT severity,COUNT(*) FROM incidents GROUP BY severity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var severity string
		var n int
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, err
		}
		res[severity] = n
	}
	return res, rows.Err()
}
