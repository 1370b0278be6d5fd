// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package models

import "time"

// Reminder is a follow-up task owned by a user, optionally tied to a lead.
type Reminder struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	Completed   bool      `json:"completed"`
	Priority    string    `json:"priority,omitempty"`
	LeadID      string    `json:"leadId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ReminderInput is the body for creating or updating a reminder.
type ReminderInput struct {
	Title       string    `json:"title" validate:"required,min=1,max=200"`
	Description string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
	Priority    string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	LeadID      string    `json:"leadId,omitempty"`
}

// ReminderQuery filters reminder lists.
type ReminderQuery struct {
	Completed *bool  `json:"completed,omitempty"`
	LeadID    string `json:"leadId,omitempty"`
	Page      int    `json:"page,omitempty" validate:"gte=0"`
	Limit     int    `json:"limit,omitempty" validate:"gte=0,lte=500"`
}
