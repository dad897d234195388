package session

import "context"

// Reasons passed to Navigator.RedirectToLogin.
const (
	ReasonLogout               = "logout"
	ReasonRefreshRejected      = "refresh_rejected"
	ReasonAuthenticationFailed = "authentication_failed"
	ReasonSessionExpired       = "session_expired"
)

// Navigator sends the user back to the login entry point.
type Navigator interface {
	RedirectToLogin(ctx context.Context, reason string)
}

// NavigatorFunc adapts a function.
type NavigatorFunc func(ctx context.Context, reason string)

func (f NavigatorFunc) RedirectToLogin(ctx context.Context, reason string) { f(ctx, reason) }

type nopNavigator struct{}

func (nopNavigator) RedirectToLogin(context.Context, string) {}

// Revoker revokes a refresh token on the server.
type Revoker interface {
	Logout(ctx context.Context, refreshToken, accessToken string) error
}
