package config

import (
	"errors"
	"fmt"
)

// Errors returned by Settings operations.
var (
	// ErrSettingNotFound indicates the setting path doesn't exist.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrValidationFailed indicates a settings file fails schema validation.
	ErrValidationFailed = errors.New("validation failed")

	// ErrWriteRefused indicates a leaf refused a value it had accepted
	// during checking, typically because of nested listener writes.
	ErrWriteRefused = errors.New("write refused")

	// ErrNoFiles indicates Reload or Watch was called before Load.
	ErrNoFiles = errors.New("no settings files loaded")
)

// SettingError describes a failure for one setting.
type SettingError struct {
	// Path is the dotted setting path.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SettingError) Error() string {
	return fmt.Sprintf("setting %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SettingError) Unwrap() error {
	return e.Err
}
