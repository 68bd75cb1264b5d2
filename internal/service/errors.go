// Package service implements the cache generation lifecycle: install,
// activate and stale-while-revalidate serving.
package service

import "errors"

var (
	// ErrInstallFailed is returned when any manifest entry could not be
	// fetched or stored. Nothing from the failed install is served.
	ErrInstallFailed = errors.New("install failed")
	// ErrCleanupFailed is returned when activation could not delete every
	// stale store. The generation is active regardless.
	ErrCleanupFailed = errors.New("stale store cleanup failed")
	// ErrInvalidGeneration is returned for a generation without a usable
	// version or store name.
	ErrInvalidGeneration = errors.New("invalid generation")
	// ErrNoWaitingGeneration is returned by Promote when nothing is waiting.
	ErrNoWaitingGeneration = errors.New("no waiting generation")
	// ErrNoActiveGeneration is returned by operations that need an active
	// generation before one has been installed.
	ErrNoActiveGeneration = errors.New("no active generation")
)
