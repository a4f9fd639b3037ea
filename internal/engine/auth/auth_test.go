package auth

import (
	"testing"

	"dockwise/internal/domain"
)

func TestRequire(t *testing.T) {
	cases := []struct {
		role    string
		action  string
		allowed bool
	}{
		{domain.RoleAdministrator, ActionDockManage, true},
		{domain.RoleOperator, ActionDockManage, true},
		{domain.RolePlanner, ActionDockManage, false},
		{domain.RoleOperator, ActionMaintenanceManage, true},
		{domain.RoleOperator, ActionMaintenanceCancel, false},
		{domain.RoleSupervisor, ActionMaintenanceCancel, true},
		{domain.RolePlanner, ActionReportView, true},
		{domain.RolePlanner, ActionUserManage, false},
		{domain.RoleAdminIT, ActionUserManage, true},
		{"intruder", ActionDockManage, false},
		{domain.RoleAdministrator, "no.such.action", false},
	}
	for _, tc := range cases {
		err := Require(tc.role, tc.action)
		if tc.allowed && err != nil {
			t.Errorf("Require(%s, %s) = %v, want nil", tc.role, tc.action, err)
		}
		if !tc.allowed && err == nil {
			t.Errorf("Require(%s, %s) = nil, want error", tc.role, tc.action)
		}
	}
}

func TestRequireOwnerOr(t *testing.T) {
	if err := RequireOwnerOr(domain.RoleOperator, "u1", "u1", "reservation.cancel"); err != nil {
		t.Errorf("owner denied: %v", err)
	}
	if err := RequireOwnerOr(domain.RoleOperator, "u2", "u1", "reservation.cancel"); err == nil {
		t.Errorf("non-owner operator allowed")
	}
	if err := RequireOwnerOr(domain.RoleSupervisor, "u2", "u1", "reservation.cancel"); err != nil {
		t.Errorf("supervisor denied: %v", err)
	}
}
