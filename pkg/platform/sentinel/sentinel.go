package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and gateways return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entry does not exist in the store or cache
//   - ErrExpired: cache entry outlived its TTL
//   - ErrCorrupted: stored payload failed validation and was discarded
//   - ErrInvalidState: value in the wrong state for the requested operation
//   - ErrUnavailable: collaborator temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrCorrupted    = errors.New("corrupted")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
