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

// MaintenanceCreateOptions are parameters for scheduling maintenance.
type MaintenanceCreateOptions struct {
	DockID         string
	Kind           string
	Description    string
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Technician     *string
	Cost           *float64
	Notes          *string
}

// CreateMaintenance schedules a maintenance window. The dock moves to the
// maintenance state immediately, which blocks new reservations until the
// work completes or is cancelled.
func (e Engine) CreateMaintenance(ctx context.Context, actor Actor, opts MaintenanceCreateOptions) (domain.Maintenance, error) {
	if err := auth.Require(actor.Role, auth.ActionMaintenanceManage); err != nil {
		return domain.Maintenance{}, err
	}
	if !domain.ValidMaintenanceKind(opts.Kind) {
		return domain.Maintenance{}, ValidationError{Message: "unknown maintenance kind"}
	}
	if opts.Description == "" {
		return domain.Maintenance{}, ValidationError{Message: "description is required"}
	}
	start := opts.ScheduledStart.UTC()
	end := opts.ScheduledEnd.UTC()
	if !end.After(start) {
		return domain.Maintenance{}, InvalidWindowError{}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Maintenance{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDockTx(ctx, tx, opts.DockID)
	if err != nil {
		return domain.Maintenance{}, err
	}
	if !d.Active {
		return domain.Maintenance{}, DockInactiveError{}
	}
	startStr := start.Format(time.RFC3339)
	endStr := end.Format(time.RFC3339)
	n, err := e.Repo.CountOverlappingTx(ctx, tx, d.ID, startStr, endStr, "")
	if err != nil {
		return domain.Maintenance{}, err
	}
	if n > 0 {
		return domain.Maintenance{}, ReservationConflictError{}
	}

	now := e.nowRFC3339()
	m := domain.Maintenance{
		ID:             uuid.NewString(),
		DockID:         d.ID,
		Kind:           opts.Kind,
		Description:    opts.Description,
		ScheduledStart: startStr,
		ScheduledEnd:   endStr,
		Status:         domain.MaintenanceScheduled,
		Technician:     opts.Technician,
		Cost:           opts.Cost,
		Notes:          opts.Notes,
		RegisteredBy:   actor.ID,
		RegisteredAt:   now,
	}
	if err := e.Repo.InsertMaintenanceTx(ctx, tx, m); err != nil {
		return domain.Maintenance{}, err
	}
	maintID, err := e.Repo.DockStateIDTx(ctx, tx, domain.DockStateMaintenance)
	if err != nil {
		return domain.Maintenance{}, err
	}
	if err := e.Repo.UpdateDockStateTx(ctx, tx, d.ID, maintID, now); err != nil {
		return domain.Maintenance{}, err
	}
	if err := e.Events.Append(ctx, tx, "maintenance.scheduled", "maintenance", m.ID, actor.ID, events.EventPayload{
		"dock_id": d.ID,
		"kind":    m.Kind,
	}); err != nil {
		return domain.Maintenance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Maintenance{}, err
	}
	return m, nil
}

// StartMaintenance moves scheduled work to in_progress.
func (e Engine) StartMaintenance(ctx context.Context, actor Actor, maintenanceID string) (domain.Maintenance, error) {
	if err := auth.Require(actor.Role, auth.ActionMaintenanceManage); err != nil {
		return domain.Maintenance{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Maintenance{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMaintenanceTx(ctx, tx, maintenanceID)
	if err != nil {
		return domain.Maintenance{}, err
	}
	if m.Status != domain.MaintenanceScheduled {
		return domain.Maintenance{}, InvalidTransitionError{From: m.Status, To: domain.MaintenanceInProgress}
	}
	m.Status = domain.MaintenanceInProgress
	if err := e.Repo.UpdateMaintenanceTx(ctx, tx, m); err != nil {
		return domain.Maintenance{}, err
	}
	if err := e.Events.Append(ctx, tx, "maintenance.started", "maintenance", m.ID, actor.ID, nil); err != nil {
		return domain.Maintenance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Maintenance{}, err
	}
	return m, nil
}

// CompleteMaintenance finishes in-progress work, stamps the actual end and
// frees the dock.
func (e Engine) CompleteMaintenance(ctx context.Context, actor Actor, maintenanceID string, cost *float64, notes *string) (domain.Maintenance, error) {
	if err := auth.Require(actor.Role, auth.ActionMaintenanceManage); err != nil {
		return domain.Maintenance{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Maintenance{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMaintenanceTx(ctx, tx, maintenanceID)
	if err != nil {
		return domain.Maintenance{}, err
	}
	if m.Status != domain.MaintenanceInProgress {
		return domain.Maintenance{}, InvalidTransitionError{From: m.Status, To: domain.MaintenanceCompleted}
	}
	now := e.nowRFC3339()
	m.Status = domain.MaintenanceCompleted
	m.ActualEnd = &now
	if cost != nil {
		m.Cost = cost
	}
	if notes != nil {
		m.Notes = notes
	}
	if err := e.Repo.UpdateMaintenanceTx(ctx, tx, m); err != nil {
		return domain.Maintenance{}, err
	}
	freeID, err := e.Repo.DockStateIDTx(ctx, tx, domain.DockStateFree)
	if err != nil {
		return domain.Maintenance{}, err
	}
	if err := e.Repo.UpdateDockStateTx(ctx, tx, m.DockID, freeID, now); err != nil {
		return domain.Maintenance{}, err
	}
	if err := e.Events.Append(ctx, tx, "maintenance.completed", "maintenance", m.ID, actor.ID, events.EventPayload{"dock_id": m.DockID}); err != nil {
		return domain.Maintenance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Maintenance{}, err
	}
	return m, nil
}

// CancelMaintenance cancels from any non-completed state. The dock is
// released only when no other scheduled or in-progress maintenance remains
// on it.
func (e Engine) CancelMaintenance(ctx context.Context, actor Actor, maintenanceID, reason string) (domain.Maintenance, error) {
	if err := auth.Require(actor.Role, auth.ActionMaintenanceCancel); err != nil {
		return domain.Maintenance{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return domain.Maintenance{}, ValidationError{Message: "cancellation reason is required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Maintenance{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMaintenanceTx(ctx, tx, maintenanceID)
	if err != nil {
		return domain.Maintenance{}, err
	}
	if m.Status == domain.MaintenanceCompleted || m.Status == domain.MaintenanceCancelled {
		return domain.Maintenance{}, InvalidTransitionError{From: m.Status, To: domain.MaintenanceCancelled}
	}
	m.Status = domain.MaintenanceCancelled
	note := "cancelled: " + reason
	if m.Notes != nil && *m.Notes != "" {
		note = *m.Notes + "\n" + note
	}
	m.Notes = &note
	if err := e.Repo.UpdateMaintenanceTx(ctx, tx, m); err != nil {
		return domain.Maintenance{}, err
	}
	remaining, err := e.Repo.CountOpenMaintenanceTx(ctx, tx, m.DockID, m.ID)
	if err != nil {
		return domain.Maintenance{}, err
	}
	now := e.nowRFC3339()
	if remaining == 0 {
		freeID, err := e.Repo.DockStateIDTx(ctx, tx, domain.DockStateFree)
		if err != nil {
			return domain.Maintenance{}, err
		}
		if err := e.Repo.UpdateDockStateTx(ctx, tx, m.DockID, freeID, now); err != nil {
			return domain.Maintenance{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "maintenance.cancelled", "maintenance", m.ID, actor.ID, events.EventPayload{
		"dock_id":  m.DockID,
		"released": remaining == 0,
	}); err != nil {
		return domain.Maintenance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Maintenance{}, err
	}
	return m, nil
}
