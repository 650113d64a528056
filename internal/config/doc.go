// Package config loads, validates and hot-reloads the carebot YAML/JSON
// configuration.
package config
