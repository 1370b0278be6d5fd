// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package crm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/models"
	"github.com/tomtom215/leaddesk/internal/validation"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(r *http.Request) (int, any)
}

func (f *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no request reached the backend")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestAPI(t *testing.T, respond func(r *http.Request) (int, any)) (*API, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{respond: respond}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		fb.mu.Unlock()

		status, payload := fb.respond(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(server.Close)

	client := backend.New(backend.Config{BaseURL: server.URL + "/api", Timeout: 5 * time.Second}, backend.StaticToken("tok"))
	return New(client), fb
}

func mutationOK(data any) (int, any) {
	return http.StatusOK, map[string]any{"data": map[string]any{"success": true, "data": data}}
}

func listOK(items any, count int) (int, any) {
	return http.StatusOK, map[string]any{"data": map[string]any{"data": items, "count": count}}
}

func TestLeads_Endpoints(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) {
		if r.Method == http.MethodGet && r.URL.Path != "/api/leads/L1" {
			return listOK([]map[string]any{{"_id": "L1", "name": "Acme"}}, 1)
		}
		return mutationOK(map[string]any{"_id": "L1", "name": "Acme", "assignedTo": "E1"})
	})
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() error
		wantMethod string
		wantPath   string
		wantQuery  string
		wantBody   string
	}{
		{
			name: "list",
			call: func() error {
				_, err := api.Leads.List(ctx, models.LeadQuery{Status: models.LeadStatusNew, Page: 2})
				return err
			},
			wantMethod: http.MethodGet, wantPath: "/api/leads", wantQuery: "page=2&status=new",
		},
		{
			name:       "get",
			call:       func() error { _, err := api.Leads.Get(ctx, "L1"); return err },
			wantMethod: http.MethodGet, wantPath: "/api/leads/L1",
		},
		{
			name: "create",
			call: func() error {
				_, err := api.Leads.Create(ctx, models.LeadInput{Name: "Acme"})
				return err
			},
			wantMethod: http.MethodPost, wantPath: "/api/leads",
		},
		{
			name: "update",
			call: func() error {
				_, err := api.Leads.Update(ctx, "L1", models.LeadInput{Name: "Acme"})
				return err
			},
			wantMethod: http.MethodPut, wantPath: "/api/leads/L1",
		},
		{
			name:       "delete",
			call:       func() error { return api.Leads.Delete(ctx, "L1") },
			wantMethod: http.MethodDelete, wantPath: "/api/leads/L1",
		},
		{
			name:       "assign to employee",
			call:       func() error { _, err := api.Leads.AssignToEmployee(ctx, "L1", "E1"); return err },
			wantMethod: http.MethodPut, wantPath: "/api/leads/L1/assign", wantBody: `{"employeeId":"E1"}`,
		},
		{
			name:       "assign to manager",
			call:       func() error { _, err := api.Leads.AssignToManager(ctx, "L1", "M1"); return err },
			wantMethod: http.MethodPut, wantPath: "/api/leads/L1/assign-manager", wantBody: `{"managerId":"M1"}`,
		},
		{
			name: "by employee",
			call: func() error {
				_, err := api.Leads.ListByEmployee(ctx, "E1", models.LeadQuery{})
				return err
			},
			wantMethod: http.MethodGet, wantPath: "/api/leads/employee/E1",
		},
		{
			name: "assigned",
			call: func() error {
				_, err := api.Leads.ListAssigned(ctx, "M1", models.LeadQuery{})
				return err
			},
			wantMethod: http.MethodGet, wantPath: "/api/leads/assigned", wantQuery: "managerId=M1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := fb.last(t)
			if got.Method != tt.wantMethod || got.Path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", got.Method, got.Path, tt.wantMethod, tt.wantPath)
			}
			if tt.wantQuery != "" && got.Query != tt.wantQuery {
				t.Errorf("query = %q, want %q", got.Query, tt.wantQuery)
			}
			if tt.wantBody != "" && got.Body != tt.wantBody {
				t.Errorf("body = %s, want %s", got.Body, tt.wantBody)
			}
		})
	}
}

func TestLeads_AssignIsSinglePut(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) {
		return http.StatusInternalServerError, map[string]any{"message": "boom"}
	})

	_, err := api.Leads.AssignToEmployee(context.Background(), "L1", "E1")
	if backend.StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500 APIError, got %v", err)
	}
	if fb.count() != 1 {
		t.Errorf("assign must not fall back to another method, backend saw %d requests", fb.count())
	}
}

func TestMissingIdentifier(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) { return mutationOK(nil) })
	ctx := context.Background()

	calls := map[string]func() error{
		"lead get":        func() error { _, err := api.Leads.Get(ctx, ""); return err },
		"lead delete":     func() error { return api.Leads.Delete(ctx, "") },
		"assign employee": func() error { _, err := api.Leads.AssignToEmployee(ctx, "L1", ""); return err },
		"assign manager":  func() error { _, err := api.Leads.AssignToManager(ctx, "", "M1"); return err },
		"by employee": func() error {
			_, err := api.Leads.ListByEmployee(ctx, "", models.LeadQuery{})
			return err
		},
		"user role":       func() error { _, err := api.Users.UpdateRole(ctx, "", models.RoleAdmin); return err },
		"users by role":   func() error { _, err := api.Users.ListByRole(ctx, ""); return err },
		"reminder toggle": func() error { _, err := api.Reminders.ToggleComplete(ctx, ""); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrMissingIdentifier) {
				t.Errorf("expected ErrMissingIdentifier, got %v", err)
			}
		})
	}
	if fb.count() != 0 {
		t.Errorf("no request should be sent, backend saw %d", fb.count())
	}
}

func TestValidationRejectsBeforeRequest(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) { return mutationOK(nil) })

	_, err := api.Users.Create(context.Background(), models.UserInput{Name: "Ann", Email: "not-an-email"})
	if !errors.Is(err, validation.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = api.Users.UpdateRole(context.Background(), "U1", "owner")
	if !errors.Is(err, validation.ErrValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
	if fb.count() != 0 {
		t.Errorf("invalid input reached the backend")
	}
}

func TestUsers_Endpoints(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) {
		if r.Method == http.MethodGet && r.URL.Path != "/api/users/U1" {
			return listOK([]map[string]any{{"_id": "U1", "name": "Ann", "role": "employee"}}, 1)
		}
		return mutationOK(map[string]any{"_id": "U1", "name": "Ann", "role": "manager"})
	})
	ctx := context.Background()

	page, err := api.Users.ListByRole(ctx, models.RoleEmployee)
	if err != nil {
		t.Fatalf("ListByRole() error = %v", err)
	}
	if got := fb.last(t).Path; got != "/api/users/role/employee" {
		t.Errorf("path = %s", got)
	}
	if len(page.Items) != 1 || page.Items[0].Role != models.RoleEmployee {
		t.Errorf("unexpected page: %+v", page)
	}

	if _, err := api.Users.ListWithRoles(ctx); err != nil {
		t.Fatalf("ListWithRoles() error = %v", err)
	}
	if got := fb.last(t).Path; got != "/api/users/roles" {
		t.Errorf("path = %s", got)
	}

	user, err := api.Users.UpdateRole(ctx, "U1", models.RoleManager)
	if err != nil {
		t.Fatalf("UpdateRole() error = %v", err)
	}
	req := fb.last(t)
	if req.Method != http.MethodPut || req.Path != "/api/users/U1/role" || req.Body != `{"role":"manager"}` {
		t.Errorf("unexpected request: %+v", req)
	}
	if user.Role != models.RoleManager {
		t.Errorf("role = %s", user.Role)
	}

	if err := api.Users.Delete(ctx, "U1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if req := fb.last(t); req.Method != http.MethodDelete || req.Path != "/api/users/U1" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestReminders_Toggle(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) {
		return mutationOK(map[string]any{"_id": "R1", "title": "Call Acme", "completed": true})
	})

	rem, err := api.Reminders.ToggleComplete(context.Background(), "R1")
	if err != nil {
		t.Fatalf("ToggleComplete() error = %v", err)
	}
	req := fb.last(t)
	if req.Method != http.MethodPatch || req.Path != "/api/reminders/R1/toggle" {
		t.Errorf("unexpected request: %+v", req)
	}
	if !rem.Completed {
		t.Error("expected completed reminder")
	}
}

func TestReminders_ListQuery(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) { return listOK([]any{}, 0) })

	done := false
	page, err := api.Reminders.List(context.Background(), models.ReminderQuery{Completed: &done, LeadID: "L1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := fb.last(t).Query; got != "completed=false&leadId=L1" {
		t.Errorf("query = %q", got)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("expected an empty non-nil page, got %+v", page)
	}
}

func TestReports(t *testing.T) {
	api, fb := newTestAPI(t, func(r *http.Request) (int, any) {
		switch r.URL.Path {
		case "/api/reports/performance":
			return listOK([]map[string]any{{"employeeId": "E1", "converted": 3, "totalLeads": 10}}, 1)
		case "/api/reports/lead-status":
			return mutationOK([]map[string]any{{"status": "new", "count": 4}})
		default:
			return mutationOK([]map[string]any{{"period": "2026-01", "leads": 10, "converted": 2, "rate": 0.2}})
		}
	})
	ctx := context.Background()
	q := models.ReportQuery{From: "2026-01-01", To: "2026-01-31"}

	perf, err := api.Reports.Performance(ctx, q)
	if err != nil || len(perf) != 1 || perf[0].Converted != 3 {
		t.Fatalf("Performance() = %+v, %v", perf, err)
	}
	if got := fb.last(t).Query; got != "from=2026-01-01&to=2026-01-31" {
		t.Errorf("query = %q", got)
	}

	summary, err := api.Reports.LeadStatusSummary(ctx, q)
	if err != nil || len(summary) != 1 || summary[0].Status != models.LeadStatusNew {
		t.Fatalf("LeadStatusSummary() = %+v, %v", summary, err)
	}

	conv, err := api.Reports.Conversion(ctx, q)
	if err != nil || len(conv) != 1 || conv[0].Rate != 0.2 {
		t.Fatalf("Conversion() = %+v, %v", conv, err)
	}

	if _, err := api.Reports.Performance(ctx, models.ReportQuery{Interval: "year"}); !errors.Is(err, validation.ErrValidation) {
		t.Errorf("expected validation error for interval, got %v", err)
	}
}

func TestUnsuccessfulMutation(t *testing.T) {
	api, _ := newTestAPI(t, func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"data": map[string]any{"success": false, "message": "duplicate email"}}
	})

	_, err := api.Users.Create(context.Background(), models.UserInput{Name: "Ann", Email: "ann@x.test"})
	if !errors.Is(err, backend.ErrUnsuccessful) {
		t.Fatalf("expected ErrUnsuccessful, got %v", err)
	}
}
