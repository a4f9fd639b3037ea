// Package auth holds the static role policy. Roles live on the user row;
// there is no per-resource grant table.
package auth

import (
	"fmt"

	"dockwise/internal/domain"
)

// ForbiddenError indicates the actor's role does not allow an action.
type ForbiddenError struct {
	Action string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role not allowed to %s", e.Action)
}

// Actions checked against the policy table.
const (
	ActionDockManage        = "dock.manage"
	ActionMaintenanceManage = "maintenance.manage"
	ActionMaintenanceCancel = "maintenance.cancel"
	ActionIncidentManage    = "incident.manage"
	ActionUserManage        = "user.manage"
	ActionReportView        = "report.view"
	ActionEventView         = "event.view"
)

var policy = map[string]map[string]bool{
	ActionDockManage: {
		domain.RoleAdministrator: true,
		domain.RoleOperator:      true,
		domain.RoleAdminIT:       true,
	},
	ActionMaintenanceManage: {
		domain.RoleAdministrator: true,
		domain.RoleOperator:      true,
		domain.RoleSupervisor:    true,
		domain.RoleAdminIT:       true,
	},
	ActionMaintenanceCancel: {
		domain.RoleAdministrator: true,
		domain.RoleSupervisor:    true,
		domain.RoleAdminIT:       true,
	},
	ActionIncidentManage: {
		domain.RoleAdministrator: true,
		domain.RoleSupervisor:    true,
		domain.RoleAdminIT:       true,
	},
	ActionUserManage: {
		domain.RoleAdministrator: true,
		domain.RoleAdminIT:       true,
	},
	ActionReportView: {
		domain.RoleAdministrator: true,
		domain.RolePlanner:       true,
		domain.RoleSupervisor:    true,
		domain.RoleAdminIT:       true,
	},
	ActionEventView: {
		domain.RoleAdministrator: true,
		domain.RoleSupervisor:    true,
		domain.RoleAdminIT:       true,
	},
}

// Require returns a ForbiddenError unless role may perform action.
func Require(role, action string) error {
	if policy[action][role] {
		return nil
	}
	return ForbiddenError{Action: action}
}

// RequireOwnerOr allows the owner of a resource, or any privileged role.
func RequireOwnerOr(role, actorID, ownerID, action string) error {
	if actorID == ownerID || domain.Privileged(role) {
		return nil
	}
	return ForbiddenError{Action: action}
}
