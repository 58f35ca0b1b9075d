// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		schemes []string
		valid   bool
	}{
		{"http", "http://provider.example:8080", []string{"http", "https"}, true},
		{"https path", "https://provider.example/get.php", []string{"http", "https"}, true},
		{"empty", "", nil, false},
		{"no host", "http://", nil, false},
		{"bad scheme", "ftp://provider.example", []string{"http", "https"}, false},
		{"any scheme", "rtsp://cam.example", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("url", tt.value, tt.schemes)
			assert.Equal(t, tt.valid, v.IsValid(), v.Errors())
		})
	}
}

func TestValidator_OptionalURL(t *testing.T) {
	v := New()
	v.OptionalURL("owi", "", []string{"http"})
	assert.True(t, v.IsValid())
	v.OptionalURL("owi", "nope", []string{"http"})
	assert.False(t, v.IsValid())
}

func TestValidator_Numbers(t *testing.T) {
	v := New()
	v.Port("port", 80)
	v.Range("threads", 5, 1, 20)
	v.Positive("size", 1)
	v.NonNegative("delay", 0)
	v.NonNegativeDuration("delay", 0)
	require.True(t, v.IsValid())

	v.Port("port", 0)
	v.Port("port", 70000)
	v.Range("threads", 21, 1, 20)
	v.Positive("size", 0)
	v.NonNegative("delay", -1)
	v.NonNegativeDuration("delay", -time.Second)
	assert.Len(t, v.Errors(), 6)
}

func TestValidator_Strings(t *testing.T) {
	v := New()
	v.NotEmpty("name", "  ")
	v.OneOf("order", "random", []string{"original", "alphabetical"})
	v.ClockTime("wakeup", "25:00")
	v.Numeric("port", "8a")
	v.Numeric("port", "")
	assert.Len(t, v.Errors(), 5)

	v = New()
	v.NotEmpty("name", "x")
	v.OneOf("order", "original", []string{"original", "alphabetical"})
	v.ClockTime("wakeup", "04:30")
	v.Numeric("port", "8080")
	assert.True(t, v.IsValid())
}

func TestValidator_Directory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	v := New()
	v.Directory("d", dir, true)
	v.Directory("d", filepath.Join(dir, "new", "nested"), false)
	require.True(t, v.IsValid(), v.Errors())
	assert.DirExists(t, filepath.Join(dir, "new", "nested"))

	v.Directory("d", "", false)
	v.Directory("d", filepath.Join(dir, "missing"), true)
	v.Directory("d", file, true)
	v.Directory("d", "../etc", false)
	assert.Len(t, v.Errors(), 4)
}

func TestValidator_Err(t *testing.T) {
	v := New()
	assert.NoError(t, v.Err())

	v.AddError("a", "first", 1)
	v.AddError("b", "second", 2)
	err := v.Err()
	require.Error(t, err)

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors(), 2)
	assert.Equal(t, "validation failed for a: first; validation failed for b: second", err.Error())

	// The returned error does not alias later additions.
	v.AddError("c", "third", 3)
	assert.Len(t, ve.Errors(), 2)
}
