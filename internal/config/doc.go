// Package config loads, normalizes, and validates transmute configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// engine and CLI need: scratch and output directories, worker pool sizing,
// external tool locations, and per-format chdman tuning.
//
// Workers never read a live Config. At submission time the coordinator calls
// Snapshot to capture a flat key/value copy of the conversion-relevant
// settings, and each worker rebuilds its own Config from that snapshot via
// FromSnapshot. This keeps jobs immune to configuration edits made after they
// were enqueued.
package config
