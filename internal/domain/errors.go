package domain

import "errors"

// Sentinel errors for the failure taxonomy. Use errors.Is to match.
var (
	// ErrToolMissing indicates gh is not installed or not on PATH
	ErrToolMissing = errors.New("gh CLI not installed")

	// ErrUnauthenticated indicates gh is installed but not logged in
	ErrUnauthenticated = errors.New("gh CLI not authenticated")

	// ErrRepositoryMissing indicates a repository directory does not exist
	ErrRepositoryMissing = errors.New("repository directory missing")

	// ErrSyncFailed indicates a stage, commit or push failed
	ErrSyncFailed = errors.New("repository sync failed")

	// ErrConflict indicates the remote moved and the operator must resolve it
	ErrConflict = errors.New("remote has diverged, manual resolution required")

	// ErrTriggerRejected indicates the workflow dispatch was refused
	ErrTriggerRejected = errors.New("workflow trigger rejected")

	// ErrQueryFailed indicates a run listing could not be fetched or parsed
	ErrQueryFailed = errors.New("run query failed")

	// ErrInvalidConfig indicates an invalid or inconsistent configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
