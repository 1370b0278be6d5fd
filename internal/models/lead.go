// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package models

import "time"

// LeadStatus is a lead's position in the sales pipeline.
type LeadStatus string

// Pipeline statuses.
const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusProposal    LeadStatus = "proposal"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusConverted   LeadStatus = "converted"
	LeadStatusLost        LeadStatus = "lost"
)

// Terminal reports whether the status ends the pipeline (converted or lost).
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusConverted || s == LeadStatusLost
}

// Lead is a sales lead.
type Lead struct {
	ID              string     `json:"_id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Company         string     `json:"company,omitempty"`
	Source          string     `json:"source,omitempty"`
	Status          LeadStatus `json:"status,omitempty"`
	Value           float64    `json:"value,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	AssignedTo      string     `json:"assignedTo,omitempty"`
	AssignedManager string     `json:"assignedManager,omitempty"`
	FollowUpDate    *time.Time `json:"followUpDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// LeadInput is the body for creating or updating a lead.
type LeadInput struct {
	Name         string     `json:"name" validate:"required,min=1,max=200"`
	Email        string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string     `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company      string     `json:"company,omitempty" validate:"omitempty,max=200"`
	Source       string     `json:"source,omitempty" validate:"omitempty,max=100"`
	Status       LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified proposal negotiation converted lost"`
	Value        float64    `json:"value,omitempty" validate:"gte=0"`
	Notes        string     `json:"notes,omitempty" validate:"omitempty,max=5000"`
	FollowUpDate *time.Time `json:"followUpDate,omitempty"`
}

// LeadQuery filters lead lists. Zero values are omitted from the query
// string and from cache keys.
type LeadQuery struct {
	Status LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified proposal negotiation converted lost"`
	Search string     `json:"search,omitempty" validate:"omitempty,max=200"`
	Source string     `json:"source,omitempty" validate:"omitempty,max=100"`
	Page   int        `json:"page,omitempty" validate:"gte=0"`
	Limit  int        `json:"limit,omitempty" validate:"gte=0,lte=500"`
}

// AssignRequest assigns a lead to an employee or a manager.
type AssignRequest struct {
	EmployeeID string `json:"employeeId,omitempty"`
	ManagerID  string `json:"managerId,omitempty"`
}
