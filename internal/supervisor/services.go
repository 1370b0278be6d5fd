// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package supervisor

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/leaddesk/internal/logging"
)

// ServeFunc is the shape of every long-running component in the data layer.
type ServeFunc func(ctx context.Context) error

// service adapts a ServeFunc to suture.Service with a name for event logs.
type service struct {
	name  string
	serve ServeFunc
}

// NewService wraps fn as a named service. Returning after ctx is done is a
// clean stop; any other return is a failure and triggers a restart.
func NewService(name string, fn ServeFunc) suture.Service {
	return &service{name: name, serve: fn}
}

func (s *service) Serve(ctx context.Context) error {
	err := s.serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		// A service that stops on its own is not restarted.
		return suture.ErrDoNotRestart
	}
	return err
}

func (s *service) String() string { return s.name }

// NewCloser returns a service that holds a resource open until shutdown and
// then releases it with closeFn.
func NewCloser(name string, closeFn func() error) suture.Service {
	return NewService(name, func(ctx context.Context) error {
		<-ctx.Done()
		if err := closeFn(); err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Str("service", name).Msg("failed to release resource")
		}
		return ctx.Err()
	})
}
