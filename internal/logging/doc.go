// Package logging builds the slog loggers used across transmute.
//
// It supports a human console format and a json format, attaches component
// names, and exposes small attr helpers so call sites stay terse. Tests use
// NewNop to silence output.
package logging
