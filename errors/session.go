package errors

// Reasons identify the small, stable set of failures the session layer hands
// to callers.
const (
	ReasonAuthenticationFailed = "AUTHENTICATION_FAILED"
	ReasonSessionExpired       = "SESSION_EXPIRED"
	ReasonRefreshRejected      = "REFRESH_REJECTED"
	ReasonNoRefreshToken       = "NO_REFRESH_TOKEN"
	ReasonRefreshUnavailable   = "REFRESH_UNAVAILABLE"
	ReasonStorageUnavailable   = "STORAGE_UNAVAILABLE"
)

var (
	// ErrAuthenticationFailed is returned when the backend rejected the
	// credential itself (blacklisted, invalid). The session has been cleared.
	ErrAuthenticationFailed = Newr(401, ReasonAuthenticationFailed, "Authentication failed")

	// ErrSessionExpired is returned when a request could not be recovered by
	// refreshing the access token.
	ErrSessionExpired = Newr(401, ReasonSessionExpired, "Session expired.")

	// ErrRefreshRejected means the refresh token is no longer accepted.
	ErrRefreshRejected = Newr(401, ReasonRefreshRejected, "refresh token rejected")

	ErrNoRefreshToken = Newr(401, ReasonNoRefreshToken, "no refresh token")

	// ErrRefreshUnavailable wraps transient refresh failures (timeouts, 5xx).
	ErrRefreshUnavailable = Newr(503, ReasonRefreshUnavailable, "token refresh unavailable")

	ErrStorageUnavailable = Newr(503, ReasonStorageUnavailable, "session storage unavailable")
)

// IsTerminal reports whether err means the session cannot be recovered and
// the user has to sign in again.
func IsTerminal(err error) bool {
	return Is(err, ErrAuthenticationFailed) ||
		Is(err, ErrRefreshRejected) ||
		Is(err, ErrNoRefreshToken)
}
