package service

import "errors"

// Error taxonomy surfaced to transports. Use errors.Is to classify.
var (
	// ErrValidation means the caller sent something unusable.
	ErrValidation = errors.New("validation failed")
	// ErrStorageRead means a day's records could not be loaded.
	ErrStorageRead = errors.New("storage read failed")
	// ErrStorageWrite means a day's records could not be saved.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrUpstreamCompute means the scoring collaborator could not produce scores.
	ErrUpstreamCompute = errors.New("upstream compute failed")
	// ErrNotStarted is returned by operations that need the job pipeline.
	ErrNotStarted = errors.New("service not started")
)
