package domain

// User roles. Administrator, supervisor and admin_it are privileged:
// they may act on resources they do not own.
const (
	RoleAdministrator = "administrator"
	RoleOperator      = "operator"
	RolePlanner       = "planner"
	RoleSupervisor    = "supervisor"
	RoleAdminIT       = "admin_it"
)

// Dock state codes. The state column on a dock is derived: only the
// reservation and maintenance transitions in the engine write it.
const (
	DockStateFree        = "free"
	DockStateReserved    = "reserved"
	DockStateInUse       = "in_use"
	DockStateMaintenance = "maintenance"
)

const (
	ReservationActive    = "active"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
)

const (
	MaintenanceScheduled  = "scheduled"
	MaintenanceInProgress = "in_progress"
	MaintenanceCompleted  = "completed"
	MaintenanceCancelled  = "cancelled"
)

const (
	MaintenancePreventive = "preventive"
	MaintenanceCorrective = "corrective"
	MaintenanceEmergency  = "emergency"
)

const (
	IncidentOpen      = "open"
	IncidentInProcess = "in_process"
	IncidentResolved  = "resolved"
	IncidentClosed    = "closed"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email" format:"email"`
	Name      string `json:"name"`
	Role      string `json:"role" enum:"administrator,operator,planner,supervisor,admin_it"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type DockType struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type DockState struct {
	ID          int    `json:"id"`
	Code        string `json:"code" enum:"free,reserved,in_use,maintenance"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Dock struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	TypeID    int      `json:"type_id"`
	StateID   int      `json:"state_id"`
	StateCode string   `json:"state_code,omitempty"`
	Capacity  *float64 `json:"capacity,omitempty"`
	Location  string   `json:"location,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Active    bool     `json:"active"`
	CreatedBy *string  `json:"created_by,omitempty"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

type Reservation struct {
	ID               string   `json:"id"`
	DockID           string   `json:"dock_id"`
	UserID           string   `json:"user_id"`
	WindowStart      string   `json:"window_start" format:"date-time"`
	WindowEnd        string   `json:"window_end" format:"date-time"`
	Status           string   `json:"status" enum:"active,completed,cancelled"`
	VehiclePlate     *string  `json:"vehicle_plate,omitempty"`
	DriverName       *string  `json:"driver_name,omitempty"`
	DriverPhone      *string  `json:"driver_phone,omitempty"`
	DriverDocument   *string  `json:"driver_document,omitempty"`
	CargoType        *string  `json:"cargo_type,omitempty"`
	CargoWeight      *float64 `json:"cargo_weight,omitempty"`
	CargoDescription *string  `json:"cargo_description,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	CreatedAt        string   `json:"created_at" format:"date-time"`
	CancelledAt      *string  `json:"cancelled_at,omitempty" format:"date-time"`
	CancelledBy      *string  `json:"cancelled_by,omitempty"`
	CancelReason     *string  `json:"cancel_reason,omitempty"`
	CompletedAt      *string  `json:"completed_at,omitempty" format:"date-time"`
}

type Maintenance struct {
	ID             string   `json:"id"`
	DockID         string   `json:"dock_id"`
	Kind           string   `json:"kind" enum:"preventive,corrective,emergency"`
	Description    string   `json:"description"`
	ScheduledStart string   `json:"scheduled_start" format:"date-time"`
	ScheduledEnd   string   `json:"scheduled_end" format:"date-time"`
	ActualEnd      *string  `json:"actual_end,omitempty" format:"date-time"`
	Status         string   `json:"status" enum:"scheduled,in_progress,completed,cancelled"`
	Technician     *string  `json:"technician,omitempty"`
	Cost           *float64 `json:"cost,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	RegisteredBy   string   `json:"registered_by"`
	RegisteredAt   string   `json:"registered_at" format:"date-time"`
}

type Incident struct {
	ID            string  `json:"id"`
	DockID        *string `json:"dock_id,omitempty"`
	ReservationID *string `json:"reservation_id,omitempty"`
	Kind          string  `json:"kind"`
	Description   string  `json:"description"`
	Severity      string  `json:"severity" enum:"low,medium,high,critical"`
	Status        string  `json:"status" enum:"open,in_process,resolved,closed"`
	OccurredAt    string  `json:"occurred_at" format:"date-time"`
	ResolvedAt    *string `json:"resolved_at,omitempty" format:"date-time"`
	ReportedBy    string  `json:"reported_by"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
	Resolution    *string `json:"resolution,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// DockStats summarizes active docks by current state.
type DockStats struct {
	TotalDocks       int     `json:"total_docks"`
	FreeDocks        int     `json:"free_docks"`
	InUseDocks       int     `json:"in_use_docks"`
	ReservedDocks    int     `json:"reserved_docks"`
	MaintenanceDocks int     `json:"maintenance_docks"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

// Privileged reports whether a role is exempt from ownership-only checks.
func Privileged(role string) bool {
	switch role {
	case RoleAdministrator, RoleSupervisor, RoleAdminIT:
		return true
	}
	return false
}

// ValidRole reports whether role is one of the known user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdministrator, RoleOperator, RolePlanner, RoleSupervisor, RoleAdminIT:
		return true
	}
	return false
}

// ValidMaintenanceKind reports whether kind is a known maintenance kind.
func ValidMaintenanceKind(kind string) bool {
	switch kind {
	case MaintenancePreventive, MaintenanceCorrective, MaintenanceEmergency:
		return true
	}
	return false
}

// ValidSeverity reports whether s is a known incident severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}
