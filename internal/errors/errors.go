package errors

import "errors"

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskInFlight       = errors.New("task is currently processing")
	ErrEmptyBatch         = errors.New("batch is empty")
	ErrRunActive          = errors.New("an upload run is already active")
	ErrMissingCredentials = errors.New("asset store credentials are not configured")
	ErrConnect            = errors.New("asset store connection failed")
)
