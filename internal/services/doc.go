// Package services defines the shared error taxonomy and context annotations
// used across the conversion engine.
//
// Errors are tagged with sentinel markers (ErrSetup, ErrStaging,
// ErrConversion, ErrFinalize, ...) via Wrap so callers can classify a failure
// with errors.Is without parsing messages. Context helpers carry job and batch
// identifiers so loggers deep in the pipeline can emit correlated records.
package services
