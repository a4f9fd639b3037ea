package engine

import "fmt"

// UnavailableError rejects a reservation because the dock cannot take it.
// Reason is one of the availability reason codes below.
type UnavailableError struct {
	Reason string
}

const (
	ReasonInactive    = "dock_inactive"
	ReasonMaintenance = "dock_maintenance"
	ReasonOverlap     = "reservation_overlap"
)

func (e UnavailableError) Error() string {
	return fmt.Sprintf("dock unavailable: %s", e.Reason)
}

// InvalidWindowError rejects a window whose end does not come after its start.
type InvalidWindowError struct{}

func (InvalidWindowError) Error() string { return "window end must be after window start" }

// PastWindowError rejects a window starting before the current time.
type PastWindowError struct{}

func (PastWindowError) Error() string { return "window must not start in the past" }

// NotActiveError rejects an operation on a reservation that is no longer active.
type NotActiveError struct {
	Status string
}

func (e NotActiveError) Error() string {
	return fmt.Sprintf("reservation is %s, not active", e.Status)
}

// AlreadyStartedError rejects cancelling a reservation whose window has begun.
type AlreadyStartedError struct{}

func (AlreadyStartedError) Error() string { return "reservation window has already started" }

// DockInactiveError rejects scheduling work on a soft-deleted dock.
type DockInactiveError struct{}

func (DockInactiveError) Error() string { return "dock is not active" }

// ReservationConflictError rejects a maintenance window that overlaps an
// active reservation on the same dock.
type ReservationConflictError struct{}

func (ReservationConflictError) Error() string {
	return "window conflicts with an active reservation"
}

// InvalidTransitionError rejects a status change the state machine does not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// DuplicateNumberError rejects a dock number already carried by an active dock.
type DuplicateNumberError struct {
	Number int
}

func (e DuplicateNumberError) Error() string {
	return fmt.Sprintf("dock number %d already in use", e.Number)
}

// InvalidReferenceError rejects a reference to a row that does not exist or
// does not fit.
type InvalidReferenceError struct {
	Field string
}

func (e InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference: %s", e.Field)
}

// ValidationError rejects malformed input before it reaches storage.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }
