package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"dockwise/internal/domain"
	"dockwise/internal/engine/auth"
	"dockwise/internal/events"
)

// ReservationCreateOptions are parameters for admitting a reservation.
type ReservationCreateOptions struct {
	DockID           string
	WindowStart      time.Time
	WindowEnd        time.Time
	VehiclePlate     *string
	DriverName       *string
	DriverPhone      *string
	DriverDocument   *string
	CargoType        *string
	CargoWeight      *float64
	CargoDescription *string
	Notes            *string
}

// CreateReservation admits a reservation for a future window. The
// availability check and the insert run in one write transaction so two
// overlapping requests on the same dock cannot both commit.
func (e Engine) CreateReservation(ctx context.Context, actor Actor, opts ReservationCreateOptions) (domain.Reservation, error) {
	start := opts.WindowStart.UTC()
	end := opts.WindowEnd.UTC()
	if !end.After(start) {
		return domain.Reservation{}, InvalidWindowError{}
	}
	if !start.After(e.now().UTC()) {
		return domain.Reservation{}, PastWindowError{}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDockTx(ctx, tx, opts.DockID)
	if err != nil {
		return domain.Reservation{}, err
	}
	startStr := start.Format(time.RFC3339)
	endStr := end.Format(time.RFC3339)
	if err := e.checkAvailabilityTx(ctx, tx, d, startStr, endStr); err != nil {
		return domain.Reservation{}, err
	}

	rv := domain.Reservation{
		ID:               uuid.NewString(),
		DockID:           d.ID,
		UserID:           actor.ID,
		WindowStart:      startStr,
		WindowEnd:        endStr,
		Status:           domain.ReservationActive,
		VehiclePlate:     opts.VehiclePlate,
		DriverName:       opts.DriverName,
		DriverPhone:      opts.DriverPhone,
		DriverDocument:   opts.DriverDocument,
		CargoType:        opts.CargoType,
		CargoWeight:      opts.CargoWeight,
		CargoDescription: opts.CargoDescription,
		Notes:            opts.Notes,
		CreatedAt:        e.nowRFC3339(),
	}
	if err := e.Repo.InsertReservationTx(ctx, tx, rv); err != nil {
		return domain.Reservation{}, err
	}
	reservedID, err := e.Repo.DockStateIDTx(ctx, tx, domain.DockStateReserved)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := e.Repo.UpdateDockStateTx(ctx, tx, d.ID, reservedID, rv.CreatedAt); err != nil {
		return domain.Reservation{}, err
	}
	if err := e.Events.Append(ctx, tx, "reservation.created", "reservation", rv.ID, actor.ID, events.EventPayload{
		"dock_id":      d.ID,
		"window_start": rv.WindowStart,
		"window_end":   rv.WindowEnd,
	}); err != nil {
		return domain.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Reservation{}, err
	}
	return rv, nil
}

// CancelReservation cancels before the window starts. Owner or privileged
// role only, and the caller must say why. The dock goes back to free
// unconditionally, mirroring the completion path.
func (e Engine) CancelReservation(ctx context.Context, actor Actor, reservationID, reason string) (domain.Reservation, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.Reservation{}, ValidationError{Message: "cancellation reason is required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer tx.Rollback()

	rv, err := e.Repo.GetReservationTx(ctx, tx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := auth.RequireOwnerOr(actor.Role, actor.ID, rv.UserID, "reservation.cancel"); err != nil {
		return domain.Reservation{}, err
	}
	if rv.Status != domain.ReservationActive {
		return domain.Reservation{}, NotActiveError{Status: rv.Status}
	}
	nowStr := e.nowRFC3339()
	if nowStr >= rv.WindowStart {
		return domain.Reservation{}, AlreadyStartedError{}
	}
	if err := e.Repo.CancelReservationTx(ctx, tx, rv.ID, nowStr, actor.ID, reason); err != nil {
		return domain.Reservation{}, err
	}
	freeID, err := e.Repo.DockStateIDTx(ctx, tx, domain.DockStateFree)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := e.Repo.UpdateDockStateTx(ctx, tx, rv.DockID, freeID, nowStr); err != nil {
		return domain.Reservation{}, err
	}
	if err := e.Events.Append(ctx, tx, "reservation.cancelled", "reservation", rv.ID, actor.ID, events.EventPayload{"dock_id": rv.DockID}); err != nil {
		return domain.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Reservation{}, err
	}
	rv.Status = domain.ReservationCancelled
	rv.CancelledAt = &nowStr
	rv.CancelledBy = &actor.ID
	rv.CancelReason = &reason
	return rv, nil
}

// CompleteReservation marks an active reservation done and frees the dock.
func (e Engine) CompleteReservation(ctx context.Context, actor Actor, reservationID string) (domain.Reservation, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer tx.Rollback()

	rv, err := e.Repo.GetReservationTx(ctx, tx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := auth.RequireOwnerOr(actor.Role, actor.ID, rv.UserID, "reservation.complete"); err != nil {
		return domain.Reservation{}, err
	}
	if rv.Status != domain.ReservationActive {
		return domain.Reservation{}, NotActiveError{Status: rv.Status}
	}
	nowStr := e.nowRFC3339()
	if err := e.Repo.CompleteReservationTx(ctx, tx, rv.ID, nowStr); err != nil {
		return domain.Reservation{}, err
	}
	freeID, err := e.Repo.DockStateIDTx(ctx, tx, domain.DockStateFree)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := e.Repo.UpdateDockStateTx(ctx, tx, rv.DockID, freeID, nowStr); err != nil {
		return domain.Reservation{}, err
	}
	if err := e.Events.Append(ctx, tx, "reservation.completed", "reservation", rv.ID, actor.ID, events.EventPayload{"dock_id": rv.DockID}); err != nil {
		return domain.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Reservation{}, err
	}
	rv.Status = domain.ReservationCompleted
	rv.CompletedAt = &nowStr
	return rv, nil
}
