// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package crm

import (
	"context"

	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/models"
)

// Reports wraps the aggregation endpoints under /reports.
type Reports struct {
	c *backend.Client
}

// Performance returns per-employee lead outcomes for the query window.
func (s *Reports) Performance(ctx context.Context, q models.ReportQuery) ([]models.Performance, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	page, err := backend.List[models.Performance](ctx, s.c, "/reports/performance", q.Values())
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// LeadStatusSummary counts leads per status.
func (s *Reports) LeadStatusSummary(ctx context.Context, q models.ReportQuery) ([]models.StatusCount, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	return backend.Fetch[[]models.StatusCount](ctx, s.c, "/reports/lead-status", q.Values())
}

// Conversion returns the conversion rate per interval bucket.
func (s *Reports) Conversion(ctx context.Context, q models.ReportQuery) ([]models.ConversionPoint, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	return backend.Fetch[[]models.ConversionPoint](ctx, s.c, "/reports/conversion", q.Values())
}
