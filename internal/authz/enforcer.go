// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package authz gates dashboard mutations by role using Casbin.
//
// The model and policy are embedded; a policy file on disk can replace the
// embedded one. Roles inherit downwards (admin > manager > employee).
// Decisions are memoized in a small TTL cache.
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/leaddesk/internal/cache"
	"github.com/tomtom215/leaddesk/internal/logging"
	"github.com/tomtom215/leaddesk/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// ErrForbidden is returned when a role may not perform an action.
var ErrForbidden = errors.New("forbidden")

// Objects and actions used by the dashboard.
const (
	ObjLeads             = "leads"
	ObjLeadAssign        = "leads.assign"
	ObjLeadAssignManager = "leads.assign-manager"
	ObjUsers             = "users"
	ObjUserRole          = "users.role"
	ObjReminders         = "reminders"
	ObjReports           = "reports"

	ActRead   = "read"
	ActCreate = "create"
	ActUpdate = "update"
	ActDelete = "delete"
)

// Config configures an Enforcer.
type Config struct {
	// PolicyPath replaces the embedded policy when set.
	PolicyPath string
	CacheTTL   time.Duration
}

// Enforcer answers role/object/action questions.
type Enforcer struct {
	enforcer  *casbin.SyncedEnforcer
	decisions *cache.Manager
}

// NewEnforcer loads the model and policy.
func NewEnforcer(cfg Config) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var e *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" {
		if _, statErr := os.Stat(cfg.PolicyPath); statErr != nil {
			return nil, fmt.Errorf("policy file: %w", statErr)
		}
		e, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		e, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(e, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Enforcer{
		enforcer:  e,
		decisions: cache.New(cache.Config{TTL: cfg.CacheTTL, Capacity: 256, Name: "authz"}),
	}, nil
}

func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := e.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := e.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Allowed reports whether role may perform act on obj.
func (e *Enforcer) Allowed(role models.Role, obj, act string) (bool, error) {
	key := cache.Join(string(role), obj, act)
	if allowed, ok := cache.GetAs[bool](e.decisions, key); ok {
		return allowed, nil
	}
	allowed, err := e.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	e.decisions.Set(key, allowed)
	return allowed, nil
}

// Authorize returns ErrForbidden unless role may perform act on obj.
func (e *Enforcer) Authorize(role models.Role, obj, act string) error {
	allowed, err := e.Allowed(role, obj, act)
	if err != nil {
		return err
	}
	if !allowed {
		logging.Debug().Str("role", string(role)).Str("object", obj).Str("action", act).Msg("Authorization denied")
		return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, role, act, obj)
	}
	return nil
}
