package repository

import "errors"

// Sentinel errors returned by repositories.
var (
	// ErrAlertNotFound is returned when an alert does not exist.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrAlertConflict is returned when a conditional alert write found the
	// row in an unexpected status (lost a compare-and-set race).
	ErrAlertConflict = errors.New("alert status conflict")
	// ErrScoreNotFound is returned when a control score does not exist.
	ErrScoreNotFound = errors.New("control score not found")
)
