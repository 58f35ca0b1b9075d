// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sref

import (
	"strings"
	"unicode"
)

// Custom is a provider supplied service identifier that replaces the derived
// namespace for a live stream.
type Custom struct {
	raw    string
	fields []string
}

// ParseCustom returns the override for a provider custom_sid value.
// Empty values and the provider placeholders "null", "None" and "0" yield false.
func ParseCustom(customSID string) (Custom, bool) {
	v := strings.TrimSpace(customSID)
	switch v {
	case "", "null", "None", "0":
		return Custom{}, false
	}
	fields := strings.Split(v, ":")
	if len(fields) < 7 {
		return Custom{}, false
	}
	return Custom{raw: v, fields: fields}, true
}

// Prefix renders the service prefix for the given type. A leading numeric type
// field in the custom value is replaced by serviceType; all other fields are
// kept verbatim.
func (c Custom) Prefix(serviceType string) string {
	rest := c.raw
	if r := []rune(rest); len(r) > 0 && unicode.IsDigit(r[0]) {
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			rest = rest[i:]
		}
	}
	if !strings.HasPrefix(rest, ":") {
		rest = ":" + rest
	}
	if !strings.HasSuffix(rest, ":") {
		rest += ":"
	}
	return serviceType + rest
}

// Reference renders the EPG mapping reference: the first seven custom fields
// followed by the fixed tail.
func (c Custom) Reference() string {
	return strings.Join(c.fields[:7], ":") + ":0:0:0:" + EPGLocator
}
