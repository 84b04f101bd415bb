package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and connection handles
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness guarantee rejected the write
// - ErrCapacity: a configured capacity limit is already reached
// - ErrClosed: the resource has been released and must not be reused
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrCapacity     = errors.New("capacity reached")
	ErrClosed       = errors.New("closed")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
