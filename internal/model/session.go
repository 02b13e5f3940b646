package model

// SessionState is the lifecycle state of the client session.
type SessionState string

const (
	// StateInitializing holds until stored credentials have been checked.
	StateInitializing SessionState = "initializing"
	// StateAuthenticated means a credential record exists and API calls
	// may be issued.
	StateAuthenticated SessionState = "authenticated"
	// StateUnauthenticated means no session is active.
	StateUnauthenticated SessionState = "unauthenticated"
)

// LogoutHandler is invoked by the request pipeline when credential renewal
// fails terminally and the session must be torn down app-wide.
type LogoutHandler interface {
	OnForcedLogout()
}
