package authflow

import (
	"errors"
	"fmt"
)

// Kind classifies a login-flow failure. Callers switch on the kind value to
// choose a user-facing message; they never inspect error types by name.
type Kind int

const (
	// KindUnknown is the zero value, returned by KindOf for errors that did
	// not originate in this package.
	KindUnknown Kind = iota

	// KindStateMismatch marks a redirect whose state parameter does not
	// match the stored transaction. Treated as a potential CSRF attack and
	// never silently recovered.
	KindStateMismatch

	// KindProviderError marks an authorization redirect carrying an error
	// parameter from the provider (user denied consent, invalid scope, ...).
	KindProviderError

	// KindMissingCode marks a redirect with a valid state but no
	// authorization code.
	KindMissingCode

	// KindTokenExchange marks a failed code-for-token exchange. The
	// authorization code is spent either way; the user must re-initiate.
	KindTokenExchange

	// KindBackendLogin marks a failure syncing the fresh access token with
	// the backend login operation.
	KindBackendLogin

	// KindRevocation marks a failed logout: the backend could not revoke
	// the token, and the local session is kept so revocation can be retried.
	KindRevocation
)

func (k Kind) String() string {
	switch k {
	case KindStateMismatch:
		return "state_mismatch"
	case KindProviderError:
		return "provider_error"
	case KindMissingCode:
		return "missing_authorization_code"
	case KindTokenExchange:
		return "token_exchange_failed"
	case KindBackendLogin:
		return "backend_login_failed"
	case KindRevocation:
		return "revocation_failed"
	}
	return "unknown"
}

// FlowError is a typed login/logout failure. Every component in the flow
// raises one; the orchestrating Service is the single place that maps a kind
// to a user-visible message.
type FlowError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// KindOf extracts the flow failure kind from an error chain.
func KindOf(err error) Kind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func flowErrorf(kind Kind, format string, args ...any) *FlowError {
	return &FlowError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
