// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

// Package xdg resolves XDG Base Directory paths for autism-tools.
package xdg

import (
	"os"
	"path/filepath"
)

const (
	appName        = "autism-tools"
	configFileName = "config.yaml"
)

// ConfigDir returns the config directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the path of config.yaml under ConfigDir when that
// file exists, and "" otherwise.
func ConfigFile() string {
	path := filepath.Join(ConfigDir(), configFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
