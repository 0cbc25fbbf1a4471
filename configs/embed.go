// Package configs embeds the configuration templates written by
// `pkgindex config init`.
package configs

import _ "embed"

// UserConfigTemplate is written to $XDG_CONFIG_HOME/pkgindex/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written to .pkgindex.yaml in the working directory.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
