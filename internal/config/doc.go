// Package config loads, normalizes, and validates docflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DOCFLOW_API_TOKEN and DOCFLOW_NTFY_TOPIC. The Config type centralizes every
// knob the daemon and CLI need: watched folders, queue retry policy, store
// timeouts, author mappings and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
