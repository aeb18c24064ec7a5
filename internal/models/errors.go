package models

import "errors"

// Sentinel errors shared by repositories and the delivery gate. Handlers map
// them to HTTP statuses; idempotent operations swallow ErrNotFound.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)
