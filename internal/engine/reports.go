package engine

import (
	"context"
	"time"

	"dockwise/internal/domain"
	"dockwise/internal/engine/auth"
	"dockwise/internal/repo"
)

// ListReservations applies requester-scoped visibility: non-privileged users
// only see their own reservations, whatever filter they pass.
func (e Engine) ListReservations(ctx context.Context, actor Actor, f repo.ReservationFilters) ([]domain.Reservation, error) {
	if !domain.Privileged(actor.Role) {
		f.UserID = actor.ID
	}
	return e.Repo.ListReservations(ctx, f)
}

func (e Engine) GetReservation(ctx context.Context, actor Actor, id string) (domain.Reservation, error) {
	rv, err := e.Repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := auth.RequireOwnerOr(actor.Role, actor.ID, rv.UserID, "reservation.view"); err != nil {
		return domain.Reservation{}, err
	}
	return rv, nil
}

func (e Engine) DockStats(ctx context.Context, actor Actor) (domain.DockStats, error) {
	if err := auth.Require(actor.Role, auth.ActionReportView); err != nil {
		return domain.DockStats{}, err
	}
	return e.Repo.DockStats(ctx)
}

func (e Engine) DailyUsage(ctx context.Context, actor Actor, from, to time.Time) ([]repo.DailyUsage, error) {
	if err := auth.Require(actor.Role, auth.ActionReportView); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, InvalidWindowError{}
	}
	return e.Repo.DailyUsage(ctx, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

func (e Engine) UsageByDock(ctx context.Context, actor Actor, from, to time.Time) ([]repo.DockUsage, error) {
	if err := auth.Require(actor.Role, auth.ActionReportView); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, InvalidWindowError{}
	}
	return e.Repo.UsageByDock(ctx, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

// ActiveReservation is a reservation in progress, annotated with how much of
// its window remains.
type ActiveReservation struct {
	domain.Reservation
	MinutesRemaining int    `json:"minutes_remaining"`
	Phase            string `json:"phase" enum:"on_schedule,ending_soon,overrunning"`
}

func (e Engine) ActiveReservations(ctx context.Context, actor Actor) ([]ActiveReservation, error) {
	if err := auth.Require(actor.Role, auth.ActionReportView); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	items, err := e.Repo.ActiveReservationsAt(ctx, now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	res := make([]ActiveReservation, 0, len(items))
	for _, rv := range items {
		ar := ActiveReservation{Reservation: rv, Phase: "on_schedule"}
		if end, err := time.Parse(time.RFC3339, rv.WindowEnd); err == nil {
			remaining := end.Sub(now)
			ar.MinutesRemaining = int(remaining.Minutes())
			switch {
			case remaining <= 0:
				ar.Phase = "overrunning"
			case remaining <= 30*time.Minute:
				ar.Phase = "ending_soon"
			}
		}
		res = append(res, ar)
	}
	return res, nil
}

func (e Engine) PendingMaintenance(ctx context.Context, actor Actor) ([]domain.Maintenance, error) {
	if err := auth.Require(actor.Role, auth.ActionReportView); err != nil {
		return nil, err
	}
	return e.Repo.PendingMaintenance(ctx)
}

// Dashboard bundles the numbers the facility overview screen shows.
type Dashboard struct {
	Docks              domain.DockStats `json:"docks"`
	ReservationsToday  int              `json:"reservations_today"`
	ActiveReservations int              `json:"active_reservations"`
	PendingMaintenance int              `json:"pending_maintenance"`
	OpenIncidents      int              `json:"open_incidents"`
}

func (e Engine) Dashboard(ctx context.Context, actor Actor) (Dashboard, error) {
	if err := auth.Require(actor.Role, auth.ActionReportView); err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	var err error
	if d.Docks, err = e.Repo.DockStats(ctx); err != nil {
		return Dashboard{}, err
	}
	now := e.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.ReservationsToday, err = e.Repo.CountReservationsBetween(ctx,
		dayStart.Format(time.RFC3339), dayStart.Add(24*time.Hour).Format(time.RFC3339)); err != nil {
		return Dashboard{}, err
	}
	active, err := e.Repo.ActiveReservationsAt(ctx, now.Format(time.RFC3339))
	if err != nil {
		return Dashboard{}, err
	}
	d.ActiveReservations = len(active)
	pending, err := e.Repo.PendingMaintenance(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.PendingMaintenance = len(pending)
	if d.OpenIncidents, err = e.Repo.CountIncidentsOpen(ctx); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
