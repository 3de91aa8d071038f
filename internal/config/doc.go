// Package config loads, normalizes, and validates stockmeta configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY (optionally sourced from a .env file). The Config type
// centralizes every knob the CLI and the local control surface need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
