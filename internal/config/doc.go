// Package config loads, validates, and normalizes Recital configuration.
//
// Configuration lives in a single TOML file with sections for storage paths,
// upload queue timing, notifications, and logging. Load applies defaults for
// missing values, expands ~ in path fields, and rejects configs that cannot
// support daemon or CLI operation.
package config
