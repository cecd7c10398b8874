// Package configs provides embedded configuration templates for watchsieve.
//
// Templates are embedded at build time so `watchsieve config init` works
// from any distribution. Precedence when loading (see internal/config Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/watchsieve/config.yaml)
//  3. Project config (.watchsieve.yaml)
//  4. Environment variables (WATCHSIEVE_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `watchsieve config init` to the user
// config path. It holds settings shared by every project on the machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written by `watchsieve config init --project`
// to .watchsieve.yaml in the working directory.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
