package worker

import "errors"

var (
	ErrWorkerNotFound = errors.New("worker not found")
	ErrValidation     = errors.New("validation error")
)
