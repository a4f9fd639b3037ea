package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dockwise/internal/config"
	"dockwise/internal/db"
	"dockwise/internal/domain"
	"dockwise/internal/engine"
	"dockwise/internal/engine/auth"
	"dockwise/internal/migrate"
	"dockwise/internal/repo"
)

var (
	admin      = engine.Actor{ID: "admin-1", Role: domain.RoleAdministrator}
	operator   = engine.Actor{ID: "op-1", Role: domain.RoleOperator}
	operator2  = engine.Actor{ID: "op-2", Role: domain.RoleOperator}
	supervisor = engine.Actor{ID: "sup-1", Role: domain.RoleSupervisor}
	planner    = engine.Actor{ID: "plan-1", Role: domain.RolePlanner}
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Base   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Auth.BcryptCost = 4
	eng := engine.New(conn, cfg)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return base }
	env := &testEnv{Engine: eng, Ctx: context.Background(), Base: base}
	// Docks, reservations and incidents reference user rows, so the test
	// actors must exist as accounts.
	now := base.Format(time.RFC3339)
	for _, a := range []engine.Actor{admin, operator, operator2, supervisor, planner} {
		err := eng.Repo.InsertUser(env.Ctx, repo.UserRecord{
			User: domain.User{
				ID:        a.ID,
				Email:     a.ID + "@example.com",
				Name:      a.ID,
				Role:      a.Role,
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			},
			PasswordHash: "-",
		})
		if err != nil {
			t.Fatalf("seed user %s: %v", a.ID, err)
		}
	}
	return env
}

func (env *testEnv) createDock(t *testing.T, number int) domain.Dock {
	t.Helper()
	d, err := env.Engine.CreateDock(env.Ctx, admin, engine.DockCreateOptions{Number: number, TypeID: 1})
	if err != nil {
		t.Fatalf("create dock %d: %v", number, err)
	}
	return d
}

func (env *testEnv) window(startOffset, endOffset time.Duration) (time.Time, time.Time) {
	return env.Base.Add(startOffset), env.Base.Add(endOffset)
}

func (env *testEnv) dockState(t *testing.T, dockID string) string {
	t.Helper()
	d, err := env.Engine.Repo.GetDock(env.Ctx, dockID)
	if err != nil {
		t.Fatalf("get dock: %v", err)
	}
	return d.StateCode
}

func TestCreateDockDuplicateNumber(t *testing.T) {
	env := newTestEnv(t)
	env.createDock(t, 7)
	_, err := env.Engine.CreateDock(env.Ctx, admin, engine.DockCreateOptions{Number: 7, TypeID: 1})
	var dup engine.DuplicateNumberError
	if !errors.As(err, &dup) || dup.Number != 7 {
		t.Fatalf("expected duplicate number error, got %v", err)
	}
	// deactivating frees the number for a new dock
	d, _ := env.Engine.Repo.GetDockByNumber(env.Ctx, 7)
	if _, err := env.Engine.SetDockActive(env.Ctx, admin, d.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := env.Engine.CreateDock(env.Ctx, admin, engine.DockCreateOptions{Number: 7, TypeID: 1}); err != nil {
		t.Fatalf("reuse number after deactivate: %v", err)
	}
	// and the old dock cannot be restored while the number is taken
	if _, err := env.Engine.SetDockActive(env.Ctx, admin, d.ID, true); !errors.As(err, &dup) {
		t.Fatalf("expected duplicate number on restore, got %v", err)
	}
}

func TestCreateDockUnknownType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateDock(env.Ctx, admin, engine.DockCreateOptions{Number: 1, TypeID: 99})
	var ref engine.InvalidReferenceError
	if !errors.As(err, &ref) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
}

func TestReservationOverlap(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(24*time.Hour, 26*time.Hour)
	if _, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	}); err != nil {
		t.Fatalf("first reservation: %v", err)
	}

	// overlapping window is rejected
	s2, e2 := env.window(25*time.Hour, 27*time.Hour)
	_, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: s2, WindowEnd: e2,
	})
	var unavail engine.UnavailableError
	if !errors.As(err, &unavail) || unavail.Reason != engine.ReasonOverlap {
		t.Fatalf("expected overlap rejection, got %v", err)
	}

	// touching windows do not overlap: [24h,26h) then [26h,28h)
	s3, e3 := env.window(26*time.Hour, 28*time.Hour)
	if _, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: s3, WindowEnd: e3,
	}); err != nil {
		t.Fatalf("touching window: %v", err)
	}
}

func TestReservationWindowValidation(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start := env.Base.Add(24 * time.Hour)

	_, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: start,
	})
	var invalid engine.InvalidWindowError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid window for zero-length, got %v", err)
	}

	_, err = env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: env.Base.Add(-time.Hour), WindowEnd: start,
	})
	var past engine.PastWindowError
	if !errors.As(err, &past) {
		t.Fatalf("expected past window, got %v", err)
	}

	// a window starting exactly now is also in the past
	_, err = env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: env.Base, WindowEnd: start,
	})
	if !errors.As(err, &past) {
		t.Fatalf("expected past window for start == now, got %v", err)
	}
}

func TestCancelReleasesDock(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(24*time.Hour, 26*time.Hour)
	rv, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateReserved {
		t.Fatalf("dock state after create = %s", got)
	}

	rv, err = env.Engine.CancelReservation(env.Ctx, operator, rv.ID, "truck broke down")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if rv.Status != domain.ReservationCancelled || rv.CancelledAt == nil {
		t.Fatalf("cancel result: %+v", rv)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateFree {
		t.Fatalf("dock state after cancel = %s", got)
	}

	_, err = env.Engine.CancelReservation(env.Ctx, operator, rv.ID, "again")
	var notActive engine.NotActiveError
	if !errors.As(err, &notActive) {
		t.Fatalf("expected not-active on second cancel, got %v", err)
	}
}

func TestCancelAfterWindowStart(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(time.Hour, 2*time.Hour)
	rv, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	})
	if err != nil {
		t.Fatal(err)
	}
	env.Engine.Now = func() time.Time { return start.Add(time.Minute) }
	_, err = env.Engine.CancelReservation(env.Ctx, operator, rv.ID, "too late")
	var started engine.AlreadyStartedError
	if !errors.As(err, &started) {
		t.Fatalf("expected already-started, got %v", err)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(24*time.Hour, 26*time.Hour)
	rv, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	})
	if err != nil {
		t.Fatal(err)
	}

	var validation engine.ValidationError
	for _, reason := range []string{"", "   "} {
		if _, err := env.Engine.CancelReservation(env.Ctx, operator, rv.ID, reason); !errors.As(err, &validation) {
			t.Fatalf("reason %q: expected validation error, got %v", reason, err)
		}
	}
	rv, err = env.Engine.GetReservation(env.Ctx, operator, rv.ID)
	if err != nil || rv.Status != domain.ReservationActive {
		t.Fatalf("reservation after rejected cancel: %v %+v", err, rv)
	}

	ms, me := env.window(30*time.Hour, 32*time.Hour)
	m, err := env.Engine.CreateMaintenance(env.Ctx, supervisor, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenancePreventive, Description: "inspection",
		ScheduledStart: ms, ScheduledEnd: me,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CancelMaintenance(env.Ctx, supervisor, m.ID, ""); !errors.As(err, &validation) {
		t.Fatalf("expected validation error for blank maintenance reason, got %v", err)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateMaintenance {
		t.Fatalf("dock state after rejected maintenance cancel = %s", got)
	}
}

func TestCancelPermissions(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(24*time.Hour, 26*time.Hour)
	rv, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.Engine.CancelReservation(env.Ctx, operator2, rv.ID, "not mine")
	var forbidden auth.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	// privileged roles may cancel anyone's reservation
	if _, err := env.Engine.CancelReservation(env.Ctx, supervisor, rv.ID, "dock needed"); err != nil {
		t.Fatalf("supervisor cancel: %v", err)
	}
}

func TestCompleteFreesDock(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(24*time.Hour, 26*time.Hour)
	rv, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	})
	if err != nil {
		t.Fatal(err)
	}
	rv, err = env.Engine.CompleteReservation(env.Ctx, operator, rv.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rv.Status != domain.ReservationCompleted || rv.CompletedAt == nil {
		t.Fatalf("complete result: %+v", rv)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateFree {
		t.Fatalf("dock state after complete = %s", got)
	}
	_, err = env.Engine.CompleteReservation(env.Ctx, operator, rv.ID)
	var notActive engine.NotActiveError
	if !errors.As(err, &notActive) {
		t.Fatalf("expected not-active on second complete, got %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(24*time.Hour, 26*time.Hour)

	av, err := env.Engine.CheckAvailability(env.Ctx, d.ID, start, end)
	if err != nil || !av.Available {
		t.Fatalf("expected available, got %+v %v", av, err)
	}

	if _, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	}); err != nil {
		t.Fatal(err)
	}
	av, err = env.Engine.CheckAvailability(env.Ctx, d.ID, start, end)
	if err != nil || av.Available || av.Reason != engine.ReasonOverlap {
		t.Fatalf("expected overlap reason, got %+v %v", av, err)
	}

	if _, err := env.Engine.CheckAvailability(env.Ctx, d.ID, end, start); err == nil {
		t.Fatalf("expected invalid window error")
	}

	d2 := env.createDock(t, 2)
	if _, err := env.Engine.SetDockActive(env.Ctx, admin, d2.ID, false); err != nil {
		t.Fatal(err)
	}
	av, err = env.Engine.CheckAvailability(env.Ctx, d2.ID, start, end)
	if err != nil || av.Available || av.Reason != engine.ReasonInactive {
		t.Fatalf("expected inactive reason, got %+v %v", av, err)
	}
}

func TestMaintenanceBlocksReservations(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	ms, me := env.window(24*time.Hour, 30*time.Hour)
	if _, err := env.Engine.CreateMaintenance(env.Ctx, supervisor, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenancePreventive, Description: "ramp check",
		ScheduledStart: ms, ScheduledEnd: me,
	}); err != nil {
		t.Fatalf("create maintenance: %v", err)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateMaintenance {
		t.Fatalf("dock state after schedule = %s", got)
	}

	start, end := env.window(48*time.Hour, 50*time.Hour)
	_, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	})
	var unavail engine.UnavailableError
	if !errors.As(err, &unavail) || unavail.Reason != engine.ReasonMaintenance {
		t.Fatalf("expected maintenance rejection, got %v", err)
	}
}

func TestMaintenanceReservationConflict(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	start, end := env.window(24*time.Hour, 26*time.Hour)
	if _, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: start, WindowEnd: end,
	}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CreateMaintenance(env.Ctx, supervisor, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenanceCorrective, Description: "hinge repair",
		ScheduledStart: env.Base.Add(25 * time.Hour), ScheduledEnd: env.Base.Add(27 * time.Hour),
	})
	var conflict engine.ReservationConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected reservation conflict, got %v", err)
	}

	// a window after the reservation ends is fine
	if _, err := env.Engine.CreateMaintenance(env.Ctx, supervisor, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenanceCorrective, Description: "hinge repair",
		ScheduledStart: end, ScheduledEnd: end.Add(2 * time.Hour),
	}); err != nil {
		t.Fatalf("non-conflicting maintenance: %v", err)
	}
}

func TestMaintenanceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	ms, me := env.window(24*time.Hour, 30*time.Hour)
	m, err := env.Engine.CreateMaintenance(env.Ctx, supervisor, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenancePreventive, Description: "ramp check",
		ScheduledStart: ms, ScheduledEnd: me,
	})
	if err != nil {
		t.Fatal(err)
	}

	// complete straight from scheduled is not allowed
	_, err = env.Engine.CompleteMaintenance(env.Ctx, supervisor, m.ID, nil, nil)
	var trans engine.InvalidTransitionError
	if !errors.As(err, &trans) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	m, err = env.Engine.StartMaintenance(env.Ctx, supervisor, m.ID)
	if err != nil || m.Status != domain.MaintenanceInProgress {
		t.Fatalf("start: %v status=%s", err, m.Status)
	}
	cost := 120.5
	m, err = env.Engine.CompleteMaintenance(env.Ctx, supervisor, m.ID, &cost, nil)
	if err != nil || m.Status != domain.MaintenanceCompleted || m.ActualEnd == nil {
		t.Fatalf("complete: %v %+v", err, m)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateFree {
		t.Fatalf("dock state after complete = %s", got)
	}
}

func TestMaintenanceCancelConditionalRelease(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	m1, err := env.Engine.CreateMaintenance(env.Ctx, supervisor, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenancePreventive, Description: "first",
		ScheduledStart: env.Base.Add(24 * time.Hour), ScheduledEnd: env.Base.Add(26 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	m2, err := env.Engine.CreateMaintenance(env.Ctx, supervisor, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenanceCorrective, Description: "second",
		ScheduledStart: env.Base.Add(48 * time.Hour), ScheduledEnd: env.Base.Add(50 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	// one open window remains, dock stays in maintenance
	if _, err := env.Engine.CancelMaintenance(env.Ctx, supervisor, m1.ID, "rescheduled"); err != nil {
		t.Fatal(err)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateMaintenance {
		t.Fatalf("dock state after first cancel = %s", got)
	}

	if _, err := env.Engine.CancelMaintenance(env.Ctx, supervisor, m2.ID, "crew reassigned"); err != nil {
		t.Fatal(err)
	}
	if got := env.dockState(t, d.ID); got != domain.DockStateFree {
		t.Fatalf("dock state after last cancel = %s", got)
	}
}

func TestMaintenanceRolePolicy(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	ms, me := env.window(24*time.Hour, 26*time.Hour)

	var forbidden auth.ForbiddenError
	_, err := env.Engine.CreateMaintenance(env.Ctx, planner, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenancePreventive, Description: "x",
		ScheduledStart: ms, ScheduledEnd: me,
	})
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for planner, got %v", err)
	}

	m, err := env.Engine.CreateMaintenance(env.Ctx, operator, engine.MaintenanceCreateOptions{
		DockID: d.ID, Kind: domain.MaintenancePreventive, Description: "x",
		ScheduledStart: ms, ScheduledEnd: me,
	})
	if err != nil {
		t.Fatalf("operator schedule: %v", err)
	}

	// operators may schedule but not cancel
	_, err = env.Engine.CancelMaintenance(env.Ctx, operator, m.ID, "no longer needed")
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden cancel for operator, got %v", err)
	}
	if _, err := env.Engine.CancelMaintenance(env.Ctx, supervisor, m.ID, "no longer needed"); err != nil {
		t.Fatalf("supervisor cancel: %v", err)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Engine.RegisterUser(env.Ctx, engine.UserCreateOptions{
		Email: "ana@example.com", Name: "Ana", Password: "short",
	})
	var validation engine.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected weak password rejection, got %v", err)
	}

	u, err := env.Engine.RegisterUser(env.Ctx, engine.UserCreateOptions{
		Email: "Ana@Example.com", Name: "Ana", Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ana@example.com" || u.Role != domain.RoleOperator {
		t.Fatalf("register result: %+v", u)
	}

	_, err = env.Engine.RegisterUser(env.Ctx, engine.UserCreateOptions{
		Email: "ana@example.com", Name: "Ana Dos", Password: "Sup3rSecret",
	})
	if !errors.As(err, &validation) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}

	if _, err := env.Engine.Authenticate(env.Ctx, "ana@example.com", "Sup3rSecret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "ana@example.com", "wrong"); !errors.Is(err, engine.ErrBadCredentials) {
		t.Fatalf("expected bad credentials, got %v", err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "nobody@example.com", "Sup3rSecret"); !errors.Is(err, engine.ErrBadCredentials) {
		t.Fatalf("expected bad credentials for unknown email, got %v", err)
	}

	// deactivated accounts cannot log in
	if _, err := env.Engine.SetUserActive(env.Ctx, admin, u.ID, false); err != nil {
		t.Fatal(err)
	}
	var forbidden auth.ForbiddenError
	if _, err := env.Engine.Authenticate(env.Ctx, "ana@example.com", "Sup3rSecret"); !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for inactive account, got %v", err)
	}
}

func TestIncidentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)

	in, err := env.Engine.CreateIncident(env.Ctx, operator, engine.IncidentCreateOptions{
		DockID: &d.ID, Kind: "damage", Description: "bent rail", Severity: domain.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}
	if in.Status != domain.IncidentOpen || in.ReportedBy != operator.ID {
		t.Fatalf("incident: %+v", in)
	}

	// close requires resolved first
	var trans engine.InvalidTransitionError
	if _, err := env.Engine.CloseIncident(env.Ctx, supervisor, in.ID); !errors.As(err, &trans) {
		t.Fatalf("expected invalid transition on close, got %v", err)
	}

	tech, err := env.Engine.RegisterUser(env.Ctx, engine.UserCreateOptions{
		Email: "tech@example.com", Name: "Tech", Password: "T3chPass1",
	})
	if err != nil {
		t.Fatal(err)
	}
	in, err = env.Engine.AssignIncident(env.Ctx, supervisor, in.ID, tech.ID)
	if err != nil || in.Status != domain.IncidentInProcess {
		t.Fatalf("assign: %v %+v", err, in)
	}
	in, err = env.Engine.ResolveIncident(env.Ctx, operator, in.ID, "rail straightened")
	if err != nil || in.Status != domain.IncidentResolved || in.ResolvedAt == nil {
		t.Fatalf("resolve: %v %+v", err, in)
	}
	in, err = env.Engine.CloseIncident(env.Ctx, supervisor, in.ID)
	if err != nil || in.Status != domain.IncidentClosed {
		t.Fatalf("close: %v %+v", err, in)
	}
}

func TestReservationVisibility(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDock(t, 1)
	mine, err := env.Engine.CreateReservation(env.Ctx, operator, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: env.Base.Add(24 * time.Hour), WindowEnd: env.Base.Add(26 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := env.Engine.CreateReservation(env.Ctx, operator2, engine.ReservationCreateOptions{
		DockID: d.ID, WindowStart: env.Base.Add(26 * time.Hour), WindowEnd: env.Base.Add(28 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	// non-privileged callers only see their own rows
	items, err := env.Engine.ListReservations(env.Ctx, operator, repo.ReservationFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != mine.ID {
		t.Fatalf("operator list: %+v", items)
	}

	items, err = env.Engine.ListReservations(env.Ctx, supervisor, repo.ReservationFilters{})
	if err != nil || len(items) != 2 {
		t.Fatalf("supervisor list: %v %+v", err, items)
	}

	var forbidden auth.ForbiddenError
	if _, err := env.Engine.GetReservation(env.Ctx, operator2, mine.ID); !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden get, got %v", err)
	}
	if _, err := env.Engine.GetReservation(env.Ctx, supervisor, theirs.ID); err != nil {
		t.Fatalf("privileged get: %v", err)
	}
}
