package authz

import "net/http"

// Principal is the authenticated actor behind a request. It is built once by
// the auth middleware from verified token claims and carried explicitly
// through the call chain; nothing below the transport layer re-derives it
// from ambient request state.
type Principal struct {
	ID   string
	Role string
}

// Decision is the result of a single policy check. It is computed per request
// and never persisted.
type Decision struct {
	Allowed bool
	// Reason is a human-readable explanation, suitable for the error
	// envelope and for audit logging.
	Reason string
	// Status is the HTTP status the transport layer should answer with
	// when the decision denies.
	Status int
}

func allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

func deny(reason string) Decision {
	return Decision{Reason: reason, Status: http.StatusForbidden}
}
