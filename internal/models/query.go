// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package models

import (
	"net/url"
	"strconv"
)

// Values encodes the query string for lead list endpoints.
func (q LeadQuery) Values() url.Values {
	v := url.Values{}
	setString(v, "status", string(q.Status))
	setString(v, "search", q.Search)
	setString(v, "source", q.Source)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

// Values encodes the query string for reminder list endpoints.
func (q ReminderQuery) Values() url.Values {
	v := url.Values{}
	if q.Completed != nil {
		v.Set("completed", strconv.FormatBool(*q.Completed))
	}
	setString(v, "leadId", q.LeadID)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

// Values encodes the query string for report endpoints.
func (q ReportQuery) Values() url.Values {
	v := url.Values{}
	setString(v, "from", q.From)
	setString(v, "to", q.To)
	setString(v, "managerId", q.ManagerID)
	setString(v, "employeeId", q.EmployeeID)
	setString(v, "interval", q.Interval)
	return v
}

func setString(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}

func setInt(v url.Values, key string, val int) {
	if val != 0 {
		v.Set(key, strconv.Itoa(val))
	}
}
