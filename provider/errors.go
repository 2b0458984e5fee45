package provider

import (
	"errors"
	"fmt"
)

// ErrInvalidProfile is returned when the identity endpoint fails or its
// payload has no identity id.
var ErrInvalidProfile = errors.New("invalid user data received from provider")

// RevocationReason distinguishes server-log classifications of a failed
// revocation. Clients only ever see a single generic failure message.
type RevocationReason int

const (
	// ReasonNotRevoked: the provider answered 200 with {"revoked": false}.
	ReasonNotRevoked RevocationReason = iota + 1
	// ReasonFailed: non-2xx status, or a non-JSON non-empty body.
	ReasonFailed
)

func (r RevocationReason) String() string {
	switch r {
	case ReasonNotRevoked:
		return "token_not_revoked"
	case ReasonFailed:
		return "revocation_failed"
	}
	return "unknown"
}

// RevocationError carries the raw provider status and body for server-side
// diagnostics. The detail must never reach the end user verbatim.
type RevocationError struct {
	Reason RevocationReason
	Status int
	Body   string
}

func (e *RevocationError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Reason, e.Status)
}
