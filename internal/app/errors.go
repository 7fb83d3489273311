// Package app holds the application services and business logic.
package app

import "errors"

var (
	// ErrPersistence indicates that a mutation could not be written to the
	// backing blob store. The mutation is not applied.
	ErrPersistence = errors.New("persisting snapshot failed")
	// ErrLocked indicates a store operation attempted before the owner was authenticated.
	ErrLocked = errors.New("session is locked")
	// ErrAuthInProgress indicates an unlock was requested while one is already pending.
	ErrAuthInProgress = errors.New("authentication already in progress")
	// ErrAuthUnavailable indicates that no authentication mechanism is configured.
	ErrAuthUnavailable = errors.New("no authentication mechanism available")
	// ErrAuthDenied indicates a failed or dismissed authentication prompt.
	ErrAuthDenied = errors.New("authentication failed or cancelled")
)
