// Package routines implements the conversion routine registry.
//
// A Routine wraps one external tool invocation pattern (chdman, DolphinTool,
// 7-Zip) behind a uniform Convert contract. Routines are registered in a
// static table keyed by stable identifiers; job payloads carry the identifier
// across the worker boundary and workers re-resolve it here, so no function
// values ever travel with a job.
//
// Routines never panic: subprocess failures surface as returned errors which
// the pipeline converts into error events and a failed job.
package routines
