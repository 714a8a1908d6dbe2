package services

import "errors"

var (
	// ErrMachineNotFound is returned when a machine ID does not exist
	ErrMachineNotFound = errors.New("machine not found")
	// ErrZoneNotFound is returned when a zone ID does not exist
	ErrZoneNotFound = errors.New("zone not found")
	// ErrAlertNotFound is returned when an alert ID does not exist
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidTransition is returned when an alert cannot move to the requested status
	ErrInvalidTransition = errors.New("invalid alert status transition")
)
