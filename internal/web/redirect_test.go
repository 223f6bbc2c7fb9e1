// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/dashboard", "/dashboard"},
		{"/word-board?size=large", "/word-board?size=large"},
		{"", "/fallback"},
		{"dashboard", "/fallback"},
		{"//evil.example.com/x", "/fallback"},
		{"/\\evil.example.com", "/fallback"},
		{"https://evil.example.com/", "/fallback"},
		{"javascript:alert(1)", "/fallback"},
		{"/ok\r\nSet-Cookie: x=y", "/fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, safeNext(tt.next, "/fallback"))
		})
	}
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login", loginURL(""))
	assert.Equal(t, "/login", loginURL("/"))
	assert.Equal(t, "/login?next=%2Fdashboard", loginURL("/dashboard"))
	assert.Equal(t, "/login?next=%2Fword-board%3Fa%3D1", loginURL("/word-board?a=1"))
}

func TestChecked(t *testing.T) {
	for _, v := range []string{"y", "on", "true", "1", " ON "} {
		assert.True(t, checked(v), v)
	}
	for _, v := range []string{"", "n", "off", "false", "0"} {
		assert.False(t, checked(v), v)
	}
}
