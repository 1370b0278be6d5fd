// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package cache

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Key builds a deterministic cache key from a resource prefix and a parameter
// value.
//
// The parameters are normalised by encoding them to JSON, decoding into
// generic maps, and encoding again: map keys come out sorted at every level,
// so two logically identical queries always produce the same key no matter
// how the caller ordered their fields. Empty parameters ("{}", "null") leave
// just the resource.
//
//	cache.Key("leads:employee:E1", map[string]any{"status": "new", "page": 1})
//	// leads:employee:E1:{"page":1,"status":"new"}
func Key(resource string, params any) string {
	canonical, err := canonicalJSON(params)
	if err != nil {
		// Unencodable params still need a deterministic key.
		return resource + ":" + fmt.Sprintf("%v", params)
	}
	if canonical == "" {
		return resource
	}
	return resource + ":" + canonical
}

// Join builds a prefix-friendly key from parts, e.g. Join("leads", "employee",
// id) = "leads:employee:<id>".
func Join(parts ...string) string {
	return strings.Join(parts, ":")
}

func canonicalJSON(params any) (string, error) {
	if params == nil {
		return "", nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}

	switch v := generic.(type) {
	case nil:
		return "", nil
	case map[string]any:
		if len(v) == 0 {
			return "", nil
		}
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
