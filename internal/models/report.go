// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package models

// Performance is one employee's pipeline summary for a period.
type Performance struct {
	EmployeeID     string  `json:"employeeId"`
	EmployeeName   string  `json:"employeeName"`
	TotalLeads     int     `json:"totalLeads"`
	Converted      int     `json:"converted"`
	Lost           int     `json:"lost"`
	Open           int     `json:"open"`
	ConversionRate float64 `json:"conversionRate"`
	Revenue        float64 `json:"revenue"`
}

// StatusCount is a lead count per status.
type StatusCount struct {
	Status LeadStatus `json:"status"`
	Count  int        `json:"count"`
}

// ConversionPoint is one bucket of a conversion trend.
type ConversionPoint struct {
	Period    string  `json:"period"`
	Leads     int     `json:"leads"`
	Converted int     `json:"converted"`
	Rate      float64 `json:"rate"`
}

// ReportQuery scopes report endpoints.
type ReportQuery struct {
	From       string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To         string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ManagerID  string `json:"managerId,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	Interval   string `json:"interval,omitempty" validate:"omitempty,oneof=day week month"`
}
