package server

import (
	"dockwise/internal/domain"
)

// Request payloads

type RegisterRequest struct {
	Email    string `json:"email" format:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty" enum:"administrator,operator,planner,supervisor,admin_it"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty" enum:"administrator,operator,planner,supervisor,admin_it"`
}

type CreateDockRequest struct {
	Number   int      `json:"number" minimum:"1"`
	TypeID   int      `json:"type_id"`
	Capacity *float64 `json:"capacity,omitempty"`
	Location *string  `json:"location,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

type UpdateDockRequest struct {
	Number   *int     `json:"number,omitempty" minimum:"1"`
	TypeID   *int     `json:"type_id,omitempty"`
	Capacity *float64 `json:"capacity,omitempty"`
	Location *string  `json:"location,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

type CreateReservationRequest struct {
	DockID           string   `json:"dock_id"`
	WindowStart      string   `json:"window_start" format:"date-time"`
	WindowEnd        string   `json:"window_end" format:"date-time"`
	VehiclePlate     *string  `json:"vehicle_plate,omitempty"`
	DriverName       *string  `json:"driver_name,omitempty"`
	DriverPhone      *string  `json:"driver_phone,omitempty"`
	DriverDocument   *string  `json:"driver_document,omitempty"`
	CargoType        *string  `json:"cargo_type,omitempty"`
	CargoWeight      *float64 `json:"cargo_weight,omitempty"`
	CargoDescription *string  `json:"cargo_description,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason" minLength:"1"`
}

type CreateMaintenanceRequest struct {
	DockID         string   `json:"dock_id"`
	Kind           string   `json:"kind" enum:"preventive,corrective,emergency"`
	Description    string   `json:"description"`
	ScheduledStart string   `json:"scheduled_start" format:"date-time"`
	ScheduledEnd   string   `json:"scheduled_end" format:"date-time"`
	Technician     *string  `json:"technician,omitempty"`
	Cost           *float64 `json:"cost,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

type CompleteMaintenanceRequest struct {
	Cost  *float64 `json:"cost,omitempty"`
	Notes *string  `json:"notes,omitempty"`
}

type CancelMaintenanceRequest struct {
	Reason string `json:"reason" minLength:"1"`
}

type CreateIncidentRequest struct {
	DockID        *string `json:"dock_id,omitempty"`
	ReservationID *string `json:"reservation_id,omitempty"`
	Kind          string  `json:"kind"`
	Description   string  `json:"description"`
	Severity      string  `json:"severity" enum:"low,medium,high,critical"`
	OccurredAt    *string `json:"occurred_at,omitempty" format:"date-time"`
}

type AssignIncidentRequest struct {
	AssignedTo string `json:"assigned_to"`
}

type ResolveIncidentRequest struct {
	Resolution string `json:"resolution"`
}

// Response payloads

type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type" example:"bearer"`
	User        domain.User `json:"user"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}
