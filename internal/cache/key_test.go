// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package cache

import "testing"

func TestKey(t *testing.T) {
	t.Parallel()

	type listParams struct {
		Status string `json:"status,omitempty"`
		Page   int    `json:"page,omitempty"`
	}

	tests := []struct {
		name     string
		resource string
		params   any
		want     string
	}{
		{"nil params", "users:role:admin", nil, "users:role:admin"},
		{"empty map", "leads:all", map[string]any{}, "leads:all"},
		{"empty struct after omitempty", "leads:all", listParams{}, "leads:all"},
		{"sorted map keys", "leads:all", map[string]any{"status": "new", "page": 2}, `leads:all:{"page":2,"status":"new"}`},
		{"struct fields sorted", "leads:all", listParams{Status: "won", Page: 1}, `leads:all:{"page":1,"status":"won"}`},
		{"nested maps sorted", "reports", map[string]any{"z": map[string]any{"b": 1, "a": 2}}, `reports:{"z":{"a":2,"b":1}}`},
		{"large ints keep precision", "x", map[string]any{"id": int64(9007199254740993)}, `x:{"id":9007199254740993}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Key(tt.resource, tt.params); got != tt.want {
				t.Errorf("Key(%q, %v) = %q, want %q", tt.resource, tt.params, got, tt.want)
			}
		})
	}
}

func TestKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	type a struct {
		Page   int    `json:"page"`
		Status string `json:"status"`
	}
	type b struct {
		Status string `json:"status"`
		Page   int    `json:"page"`
	}

	k1 := Key("leads:all", a{Page: 3, Status: "lost"})
	k2 := Key("leads:all", b{Status: "lost", Page: 3})
	k3 := Key("leads:all", map[string]any{"status": "lost", "page": 3})

	if k1 != k2 || k2 != k3 {
		t.Errorf("Expected identical keys, got %q, %q, %q", k1, k2, k3)
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	if got := Join("leads", "employee", "E1"); got != "leads:employee:E1" {
		t.Errorf("Join() = %q", got)
	}
}
