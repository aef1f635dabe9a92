// internal/services/errors.go
package services

import "errors"

var (
	// ErrNotFound covers both unknown and revoked resources, so callers
	// cannot distinguish the two from the outside.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyAssigned is returned when holder details are submitted for
	// a registration that already has a holder.
	ErrAlreadyAssigned = errors.New("registration already assigned")

	// ErrDuplicateRequest marks a create request whose idempotency token
	// has been seen before.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrAllocationExhausted is returned when no free registration id was
	// found within the attempt budget.
	ErrAllocationExhausted = errors.New("registration id allocation exhausted")
)
