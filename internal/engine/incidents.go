package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dockwise/internal/domain"
	"dockwise/internal/engine/auth"
	"dockwise/internal/events"
	"dockwise/internal/repo"
)

// IncidentCreateOptions are parameters for reporting an incident. Any
// authenticated user may report one.
type IncidentCreateOptions struct {
	DockID        *string
	ReservationID *string
	Kind          string
	Description   string
	Severity      string
	OccurredAt    *time.Time
}

func (e Engine) CreateIncident(ctx context.Context, actor Actor, opts IncidentCreateOptions) (domain.Incident, error) {
	if opts.Kind == "" || opts.Description == "" {
		return domain.Incident{}, ValidationError{Message: "kind and description are required"}
	}
	if !domain.ValidSeverity(opts.Severity) {
		return domain.Incident{}, ValidationError{Message: "unknown severity"}
	}
	if opts.DockID != nil {
		if _, err := e.Repo.GetDock(ctx, *opts.DockID); err != nil {
			if err == repo.ErrNotFound {
				return domain.Incident{}, InvalidReferenceError{Field: "dock_id"}
			}
			return domain.Incident{}, err
		}
	}
	if opts.ReservationID != nil {
		rv, err := e.Repo.GetReservation(ctx, *opts.ReservationID)
		if err != nil {
			if err == repo.ErrNotFound {
				return domain.Incident{}, InvalidReferenceError{Field: "reservation_id"}
			}
			return domain.Incident{}, err
		}
		if opts.DockID != nil && rv.DockID != *opts.DockID {
			return domain.Incident{}, InvalidReferenceError{Field: "reservation_id"}
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	now := e.nowRFC3339()
	occurred := now
	if opts.OccurredAt != nil {
		occurred = opts.OccurredAt.UTC().Format(time.RFC3339)
	}
	in := domain.Incident{
		ID:            uuid.NewString(),
		DockID:        opts.DockID,
		ReservationID: opts.ReservationID,
		Kind:          opts.Kind,
		Description:   opts.Description,
		Severity:      opts.Severity,
		Status:        domain.IncidentOpen,
		OccurredAt:    occurred,
		ReportedBy:    actor.ID,
		CreatedAt:     now,
	}
	if err := e.Repo.InsertIncidentTx(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := e.Events.Append(ctx, tx, "incident.opened", "incident", in.ID, actor.ID, events.EventPayload{"severity": in.Severity}); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return in, nil
}

// AssignIncident hands an open incident to a user and moves it to in_process.
func (e Engine) AssignIncident(ctx context.Context, actor Actor, incidentID, assigneeID string) (domain.Incident, error) {
	if err := auth.Require(actor.Role, auth.ActionIncidentManage); err != nil {
		return domain.Incident{}, err
	}
	if _, err := e.Repo.GetUser(ctx, assigneeID); err != nil {
		if err == repo.ErrNotFound {
			return domain.Incident{}, InvalidReferenceError{Field: "assigned_to"}
		}
		return domain.Incident{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetIncidentTx(ctx, tx, incidentID)
	if err != nil {
		return domain.Incident{}, err
	}
	if in.Status != domain.IncidentOpen && in.Status != domain.IncidentInProcess {
		return domain.Incident{}, InvalidTransitionError{From: in.Status, To: domain.IncidentInProcess}
	}
	in.Status = domain.IncidentInProcess
	in.AssignedTo = &assigneeID
	if err := e.Repo.UpdateIncidentTx(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := e.Events.Append(ctx, tx, "incident.assigned", "incident", in.ID, actor.ID, events.EventPayload{"assigned_to": assigneeID}); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return in, nil
}

// ResolveIncident records the resolution. The reporter, the assignee or a
// privileged role may resolve.
func (e Engine) ResolveIncident(ctx context.Context, actor Actor, incidentID, resolution string) (domain.Incident, error) {
	if resolution == "" {
		return domain.Incident{}, ValidationError{Message: "resolution is required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetIncidentTx(ctx, tx, incidentID)
	if err != nil {
		return domain.Incident{}, err
	}
	allowed := actor.ID == in.ReportedBy || domain.Privileged(actor.Role)
	if in.AssignedTo != nil && actor.ID == *in.AssignedTo {
		allowed = true
	}
	if !allowed {
		return domain.Incident{}, auth.ForbiddenError{Action: "incident.resolve"}
	}
	if in.Status != domain.IncidentOpen && in.Status != domain.IncidentInProcess {
		return domain.Incident{}, InvalidTransitionError{From: in.Status, To: domain.IncidentResolved}
	}
	now := e.nowRFC3339()
	in.Status = domain.IncidentResolved
	in.Resolution = &resolution
	in.ResolvedAt = &now
	if err := e.Repo.UpdateIncidentTx(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := e.Events.Append(ctx, tx, "incident.resolved", "incident", in.ID, actor.ID, nil); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return in, nil
}

// CloseIncident closes a resolved incident.
func (e Engine) CloseIncident(ctx context.Context, actor Actor, incidentID string) (domain.Incident, error) {
	if err := auth.Require(actor.Role, auth.ActionIncidentManage); err != nil {
		return domain.Incident{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, err
	}
	defer tx.Rollback()

	in, err := e.Repo.GetIncidentTx(ctx, tx, incidentID)
	if err != nil {
		return domain.Incident{}, err
	}
	if in.Status != domain.IncidentResolved {
		return domain.Incident{}, InvalidTransitionError{From: in.Status, To: domain.IncidentClosed}
	}
	in.Status = domain.IncidentClosed
	if err := e.Repo.UpdateIncidentTx(ctx, tx, in); err != nil {
		return domain.Incident{}, err
	}
	if err := e.Events.Append(ctx, tx, "incident.closed", "incident", in.ID, actor.ID, nil); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, err
	}
	return in, nil
}

// ListIncidents applies requester-scoped visibility: non-privileged users
// only see incidents they reported.
func (e Engine) ListIncidents(ctx context.Context, actor Actor, f repo.IncidentFilters) ([]domain.Incident, error) {
	if !domain.Privileged(actor.Role) {
		f.ReportedBy = actor.ID
	}
	return e.Repo.ListIncidents(ctx, f)
}

func (e Engine) GetIncident(ctx context.Context, actor Actor, id string) (domain.Incident, error) {
	in, err := e.Repo.GetIncident(ctx, id)
	if err != nil {
		return domain.Incident{}, err
	}
	allowed := actor.ID == in.ReportedBy || domain.Privileged(actor.Role)
	if in.AssignedTo != nil && actor.ID == *in.AssignedTo {
		allowed = true
	}
	if !allowed {
		return domain.Incident{}, auth.ForbiddenError{Action: "incident.view"}
	}
	return in, nil
}

// IncidentSummary groups incidents by status and severity.
type IncidentSummary struct {
	ByStatus   map[string]int `json:"by_status"`
	BySeverity map[string]int `json:"by_severity"`
	Open       int            `json:"open"`
}

func (e Engine) IncidentSummary(ctx context.Context, actor Actor) (IncidentSummary, error) {
	if err := auth.Require(actor.Role, auth.ActionIncidentManage); err != nil {
		return IncidentSummary{}, err
	}
	byStatus, err := e.Repo.CountIncidentsByStatus(ctx)
	if err != nil {
		return IncidentSummary{}, err
	}
	bySeverity, err := e.Repo.CountIncidentsBySeverity(ctx)
	if err != nil {
		return IncidentSummary{}, err
	}
	return IncidentSummary{
		ByStatus:   byStatus,
		BySeverity: bySeverity,
		Open:       byStatus[domain.IncidentOpen] + byStatus[domain.IncidentInProcess],
	}, nil
}
