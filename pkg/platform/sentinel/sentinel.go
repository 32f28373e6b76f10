package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Infrastructure layers return
// these (optionally wrapped) so callers can branch with errors.Is.
//
// - ErrUnavailable: backing service is down or the circuit is open
var (
	ErrUnavailable = errors.New("unavailable")
)
