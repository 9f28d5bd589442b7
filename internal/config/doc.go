// Package config holds session options, their defaults, and settings-file
// loading. Settings files may be TOML or YAML; durations are written as Go
// duration strings such as "90s" or "5m".
package config
