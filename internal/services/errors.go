package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSetup marks workspace or settings initialization failures. Terminal;
	// no conversion is attempted.
	ErrSetup = errors.New("setup error")
	// ErrStaging marks copy, extraction, or dependency resolution failures.
	ErrStaging = errors.New("staging error")
	// ErrConversion marks routine failures or empty output.
	ErrConversion = errors.New("conversion error")
	// ErrFinalize marks output placement failures after bounded rename attempts.
	ErrFinalize = errors.New("finalize error")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Stage returns the pipeline stage name associated with a tagged error, or
// "worker" for faults outside the stage taxonomy.
func Stage(err error) string {
	switch {
	case errors.Is(err, ErrSetup):
		return "prepare"
	case errors.Is(err, ErrStaging):
		return "stage"
	case errors.Is(err, ErrConversion):
		return "convert"
	case errors.Is(err, ErrFinalize):
		return "finalize"
	default:
		return "worker"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
