package biz

import "errors"

var (
	// ErrQueryRequired neither a query nor a segment was given
	ErrQueryRequired = errors.New("query or segment is required")

	// ErrCollectionNotFound no session with that id
	ErrCollectionNotFound = errors.New("research collection not found")

	// ErrStorageUnavailable sessions are not persisted in this deployment
	ErrStorageUnavailable = errors.New("research storage is not configured")

	// ErrAnalyzerUnavailable no text generator configured
	ErrAnalyzerUnavailable = errors.New("analysis generator is not configured")

	// ErrNoContent nothing survived extraction
	ErrNoContent = errors.New("no content to analyze")
)
