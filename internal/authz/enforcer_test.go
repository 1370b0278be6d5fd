// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package authz

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/leaddesk/internal/models"
)

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	e, err := NewEnforcer(Config{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	tests := []struct {
		role models.Role
		obj  string
		act  string
		want bool
	}{
		{models.RoleEmployee, ObjLeads, ActRead, true},
		{models.RoleEmployee, ObjLeads, ActUpdate, true},
		{models.RoleEmployee, ObjReminders, ActDelete, true},
		{models.RoleEmployee, ObjLeadAssign, ActUpdate, false},
		{models.RoleEmployee, ObjUsers, ActRead, false},
		{models.RoleManager, ObjLeadAssign, ActUpdate, true},
		{models.RoleManager, ObjLeads, ActRead, true},
		{models.RoleManager, ObjLeads, ActDelete, false},
		{models.RoleManager, ObjUserRole, ActUpdate, false},
		{models.RoleAdmin, ObjUserRole, ActUpdate, true},
		{models.RoleAdmin, ObjUsers, ActDelete, true},
		{models.RoleAdmin, ObjLeadAssign, ActUpdate, true},
		{models.RoleAdmin, ObjReminders, ActCreate, true},
		{models.Role("guest"), ObjLeads, ActRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.obj+"/"+tt.act, func(t *testing.T) {
			got, err := e.Allowed(tt.role, tt.obj, tt.act)
			if err != nil {
				t.Fatalf("Allowed() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Allowed() = %v, want %v", got, tt.want)
			}
			// Second call is answered from the decision cache.
			if again, _ := e.Allowed(tt.role, tt.obj, tt.act); again != got {
				t.Error("cached decision differs")
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	e, err := NewEnforcer(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Authorize(models.RoleEmployee, ObjUsers, ActDelete); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := e.Authorize(models.RoleAdmin, ObjUsers, ActDelete); err != nil {
		t.Errorf("admin should be allowed: %v", err)
	}
}

func TestEnforcer_PolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, employee, reports, read\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}

	e, err := NewEnforcer(Config{PolicyPath: path})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	if ok, _ := e.Allowed(models.RoleEmployee, ObjReports, ActRead); !ok {
		t.Error("file policy should allow reports read")
	}
	if ok, _ := e.Allowed(models.RoleEmployee, ObjLeads, ActRead); ok {
		t.Error("file policy replaces the embedded one")
	}

	if _, err := NewEnforcer(Config{PolicyPath: filepath.Join(t.TempDir(), "missing.csv")}); err == nil {
		t.Error("expected an error for a missing policy file")
	}
}

func TestLoadPolicy_Malformed(t *testing.T) {
	e, err := NewEnforcer(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := loadPolicy(e.enforcer, "p, only-two"); err == nil {
		t.Error("expected an error for a malformed line")
	}
}
