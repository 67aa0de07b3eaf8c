package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Repositories, ledgers and lockers
// return these (optionally wrapped) so the audit service can translate them
// into domain errors.
//
// - ErrNotFound: row does not exist in store
// - ErrConflict: write collided with an existing row
// - ErrLocked: record lock is held by someone else
// - ErrUnavailable: backend temporarily unavailable (breaker open, broker down)
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLocked      = errors.New("locked")
	ErrUnavailable = errors.New("unavailable")
)
