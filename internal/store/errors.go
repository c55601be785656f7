package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrRunFinished is returned when completing a run that already reached
	// a terminal status
	ErrRunFinished = errors.New("run already finished")
)
