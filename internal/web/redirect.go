// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"net/url"
	"strings"
)

// safeNext returns next when it is a local absolute path, otherwise fallback.
// Scheme-relative URLs, absolute URLs, and backslashes are refused so the
// redirect cannot leave the site.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	if strings.ContainsAny(next, "\\\r\n\t") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	return next
}

// loginURL is the sign-in page that returns to path afterwards.
func loginURL(path string) string {
	if path == "" || path == "/" {
		return "/login"
	}
	return "/login?" + url.Values{"next": {path}}.Encode()
}
