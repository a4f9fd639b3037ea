package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dockwise/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

const dockColumns = `d.id,d.number,d.type_id,d.state_id,s.code,d.capacity,d.location,d.notes,d.active,d.created_by,d.created_at,d.updated_at`

func scanDock(scan func(dest ...any) error) (domain.Dock, error) {
	var d domain.Dock
	var capacity sql.NullFloat64
	var location, notes, createdBy sql.NullString
	err := scan(&d.ID, &d.Number, &d.TypeID, &d.StateID, &d.StateCode, &capacity, &location, &notes, &d.Active, &createdBy, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if capacity.Valid {
		d.Capacity = &capacity.Float64
	}
	if location.Valid {
		d.Location = location.String
	}
	if notes.Valid {
		d.Notes = notes.String
	}
	if createdBy.Valid {
		d.CreatedBy = &createdBy.String
	}
	return d, nil
}

func (r Repo) InsertDockTx(ctx context.Context, tx *sql.Tx, d domain.Dock) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO docks(id,number,type_id,state_id,capacity,location,notes,active,created_by,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.Number, d.TypeID, d.StateID, nullableFloatPtr(d.Capacity), nullable(d.Location), nullable(d.Notes), d.Active, nullableStringPtr(d.CreatedBy), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDock(ctx context.Context, id string) (domain.Dock, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+dockColumns+` FROM docks d JOIN dock_states s ON s.id=d.state_id WHERE d.id=?`, id)
	return scanDock(row.Scan)
}

func (r Repo) GetDockTx(ctx context.Context, tx *sql.Tx, id string) (domain.Dock, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+dockColumns+` FROM docks d JOIN dock_states s ON s.id=d.state_id WHERE d.id=?`, id)
	return scanDock(row.Scan)
}

func (r Repo) GetDockByNumber(ctx context.Context, number int) (domain.Dock, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+dockColumns+` FROM docks d JOIN dock_states s ON s.id=d.state_id WHERE d.number=? AND d.active=1`, number)
	return scanDock(row.Scan)
}

// CountDocksByNumberTx counts active docks carrying the given number,
// excluding excludeID when non-empty.
func (r Repo) CountDocksByNumberTx(ctx context.Context, tx *sql.Tx, number int, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM docks WHERE number=? AND active=1`
	args := []any{number}
	if excludeID != "" {
		query += ` AND id<>?`
		args = append(args, excludeID)
	}
	var n int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

type DockFilters struct {
	StateCode  string
	TypeID     int
	ActiveOnly bool
	Limit      int
}

func (r Repo) ListDocks(ctx context.Context, f DockFilters) ([]domain.Dock, error) {
	var clauses []string
	var args []any
	if f.StateCode != "" {
		clauses = append(clauses, "s.code=?")
		args = append(args, f.StateCode)
	}
	if f.TypeID > 0 {
		clauses = append(clauses, "d.type_id=?")
		args = append(args, f.TypeID)
	}
	if f.ActiveOnly {
		clauses = append(clauses, "d.active=1")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + dockColumns + ` FROM docks d JOIN dock_states s ON s.id=d.state_id ` + where + ` ORDER BY d.number ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Dock
	for rows.Next() {
		d, err := scanDock(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) UpdateDockTx(ctx context.Context, tx *sql.Tx, d domain.Dock) error {
	res, err := tx.ExecContext(ctx, `UPDATE docks SET number=?,type_id=?,capacity=?,location=?,notes=?,updated_at=? WHERE id=?`,
		d.Number, d.TypeID, nullableFloatPtr(d.Capacity), nullable(d.Location), nullable(d.Notes), d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateDockStateTx(ctx context.Context, tx *sql.Tx, dockID string, stateID int, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE docks SET state_id=?,updated_at=? WHERE id=?`, stateID, updatedAt, dockID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetDockActiveTx(ctx context.Context, tx *sql.Tx, dockID string, active bool, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE docks SET active=?,updated_at=? WHERE id=?`, active, updatedAt, dockID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListDockTypes(ctx context.Context) ([]domain.DockType, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,code,name,COALESCE(description,'') FROM dock_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DockType
	for rows.Next() {
		var t domain.DockType
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetDockType(ctx context.Context, id int) (domain.DockType, error) {
	var t domain.DockType
	err := r.DB.QueryRowContext(ctx, `SELECT id,code,name,COALESCE(description,'') FROM dock_types WHERE id=?`, id).
		Scan(&t.ID, &t.Code, &t.Name, &t.Description)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListDockStates(ctx context.Context) ([]domain.DockState, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,code,name,COALESCE(description,'') FROM dock_states ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DockState
	for rows.Next() {
		var s domain.DockState
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// DockStateID resolves a state code to its row id. State rows are seeded
// by the migrations so a miss means a bad code, not missing data.
func (r Repo) DockStateID(ctx context.Context, code string) (int, error) {
	var id int
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM dock_states WHERE code=?`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("unknown dock state %q", code)
	}
	return id, err
}

func (r Repo) DockStateIDTx(ctx context.Context, tx *sql.Tx, code string) (int, error) {
	var id int
	err := tx.QueryRowContext(ctx, `SELECT id FROM dock_states WHERE code=?`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("unknown dock state %q", code)
	}
	return id, err
}
