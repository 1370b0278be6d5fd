// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package models

import "time"

// Role is a dashboard role.
type Role string

// Roles known to the dashboard.
const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// User is a team member.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ManagerID string    `json:"managerId,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserInput is the body for creating or updating a user.
type UserInput struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Role      Role   `json:"role,omitempty" validate:"omitempty,oneof=admin manager employee"`
	ManagerID string `json:"managerId,omitempty"`
}

// RoleUpdate is the body of a role change.
type RoleUpdate struct {
	Role Role `json:"role" validate:"required,oneof=admin manager employee"`
}

// UserWithRole is the row returned by the users-with-roles listing.
type UserWithRole struct {
	User
	ManagerName string `json:"managerName,omitempty"`
	LeadCount   int    `json:"leadCount"`
}
