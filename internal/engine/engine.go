package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"dockwise/internal/config"
	"dockwise/internal/domain"
	"dockwise/internal/engine/auth"
	"dockwise/internal/events"
	"dockwise/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Actor identifies the authenticated caller for an operation. Role is
// trusted as-is; the token layer has already verified it.
type Actor struct {
	ID   string
	Role string
}

// DockCreateOptions are parameters for registering a dock.
type DockCreateOptions struct {
	Number   int
	TypeID   int
	Capacity *float64
	Location string
	Notes    string
}

func (e Engine) CreateDock(ctx context.Context, actor Actor, opts DockCreateOptions) (domain.Dock, error) {
	if err := auth.Require(actor.Role, auth.ActionDockManage); err != nil {
		return domain.Dock{}, err
	}
	if opts.Number <= 0 {
		return domain.Dock{}, ValidationError{Message: "dock number must be positive"}
	}
	if _, err := e.Repo.GetDockType(ctx, opts.TypeID); err != nil {
		if err == repo.ErrNotFound {
			return domain.Dock{}, InvalidReferenceError{Field: "type_id"}
		}
		return domain.Dock{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Dock{}, err
	}
	defer tx.Rollback()

	n, err := e.Repo.CountDocksByNumberTx(ctx, tx, opts.Number, "")
	if err != nil {
		return domain.Dock{}, err
	}
	if n > 0 {
		return domain.Dock{}, DuplicateNumberError{Number: opts.Number}
	}
	stateID, err := e.Repo.DockStateIDTx(ctx, tx, domain.DockStateFree)
	if err != nil {
		return domain.Dock{}, err
	}
	now := e.nowRFC3339()
	d := domain.Dock{
		ID:        uuid.NewString(),
		Number:    opts.Number,
		TypeID:    opts.TypeID,
		StateID:   stateID,
		StateCode: domain.DockStateFree,
		Capacity:  opts.Capacity,
		Location:  opts.Location,
		Notes:     opts.Notes,
		Active:    true,
		CreatedBy: &actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertDockTx(ctx, tx, d); err != nil {
		return domain.Dock{}, err
	}
	if err := e.Events.Append(ctx, tx, "dock.created", "dock", d.ID, actor.ID, events.EventPayload{"number": d.Number}); err != nil {
		return domain.Dock{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Dock{}, err
	}
	return d, nil
}

// DockUpdateOptions carry optional field updates; nil means leave as is.
type DockUpdateOptions struct {
	Number   *int
	TypeID   *int
	Capacity *float64
	Location *string
	Notes    *string
}

func (e Engine) UpdateDock(ctx context.Context, actor Actor, dockID string, opts DockUpdateOptions) (domain.Dock, error) {
	if err := auth.Require(actor.Role, auth.ActionDockManage); err != nil {
		return domain.Dock{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Dock{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDockTx(ctx, tx, dockID)
	if err != nil {
		return domain.Dock{}, err
	}
	if opts.Number != nil && *opts.Number != d.Number {
		if *opts.Number <= 0 {
			return domain.Dock{}, ValidationError{Message: "dock number must be positive"}
		}
		n, err := e.Repo.CountDocksByNumberTx(ctx, tx, *opts.Number, d.ID)
		if err != nil {
			return domain.Dock{}, err
		}
		if n > 0 {
			return domain.Dock{}, DuplicateNumberError{Number: *opts.Number}
		}
		d.Number = *opts.Number
	}
	if opts.TypeID != nil && *opts.TypeID != d.TypeID {
		if _, err := e.Repo.GetDockType(ctx, *opts.TypeID); err != nil {
			if err == repo.ErrNotFound {
				return domain.Dock{}, InvalidReferenceError{Field: "type_id"}
			}
			return domain.Dock{}, err
		}
		d.TypeID = *opts.TypeID
	}
	if opts.Capacity != nil {
		d.Capacity = opts.Capacity
	}
	if opts.Location != nil {
		d.Location = *opts.Location
	}
	if opts.Notes != nil {
		d.Notes = *opts.Notes
	}
	d.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateDockTx(ctx, tx, d); err != nil {
		return domain.Dock{}, err
	}
	if err := e.Events.Append(ctx, tx, "dock.updated", "dock", d.ID, actor.ID, nil); err != nil {
		return domain.Dock{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Dock{}, err
	}
	return d, nil
}

// SetDockActive soft-deletes or restores a dock. History referencing the
// dock is kept either way.
func (e Engine) SetDockActive(ctx context.Context, actor Actor, dockID string, active bool) (domain.Dock, error) {
	if err := auth.Require(actor.Role, auth.ActionDockManage); err != nil {
		return domain.Dock{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Dock{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDockTx(ctx, tx, dockID)
	if err != nil {
		return domain.Dock{}, err
	}
	if active && !d.Active {
		// Restoring must not revive a number another active dock took over.
		n, err := e.Repo.CountDocksByNumberTx(ctx, tx, d.Number, d.ID)
		if err != nil {
			return domain.Dock{}, err
		}
		if n > 0 {
			return domain.Dock{}, DuplicateNumberError{Number: d.Number}
		}
	}
	d.Active = active
	d.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.SetDockActiveTx(ctx, tx, d.ID, active, d.UpdatedAt); err != nil {
		return domain.Dock{}, err
	}
	evt := "dock.deactivated"
	if active {
		evt = "dock.activated"
	}
	if err := e.Events.Append(ctx, tx, evt, "dock", d.ID, actor.ID, nil); err != nil {
		return domain.Dock{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Dock{}, err
	}
	return d, nil
}

// Availability reports whether a dock can take a reservation window, with a
// reason code when it cannot.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// CheckAvailability is the read-only availability query. Admission uses
// checkAvailabilityTx inside the same transaction as the insert instead,
// so a concurrent create cannot slip between check and commit.
func (e Engine) CheckAvailability(ctx context.Context, dockID string, start, end time.Time) (Availability, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return Availability{}, InvalidWindowError{}
	}
	d, err := e.Repo.GetDock(ctx, dockID)
	if err != nil {
		return Availability{}, err
	}
	if !d.Active {
		return Availability{Reason: ReasonInactive}, nil
	}
	if d.StateCode == domain.DockStateMaintenance {
		return Availability{Reason: ReasonMaintenance}, nil
	}
	n, err := e.Repo.CountOverlapping(ctx, dockID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	if err != nil {
		return Availability{}, err
	}
	if n > 0 {
		return Availability{Reason: ReasonOverlap}, nil
	}
	return Availability{Available: true}, nil
}

// checkAvailabilityTx runs the same predicate against the transaction that
// will perform the insert.
func (e Engine) checkAvailabilityTx(ctx context.Context, tx *sql.Tx, d domain.Dock, start, end string) error {
	if !d.Active {
		return UnavailableError{Reason: ReasonInactive}
	}
	if d.StateCode == domain.DockStateMaintenance {
		return UnavailableError{Reason: ReasonMaintenance}
	}
	n, err := e.Repo.CountOverlappingTx(ctx, tx, d.ID, start, end, "")
	if err != nil {
		return err
	}
	if n > 0 {
		return UnavailableError{Reason: ReasonOverlap}
	}
	return nil
}
