package session

import (
	"time"
)

// Identity holds profile attributes used for UI gating. It is never used
// for authorization decisions.
type Identity struct {
	Username       string
	UserID         string
	UserType       string
	DjangoUserType string // organization role
	ProjectID      string
	Department     string
	Grade          string

	IsApproved              *bool
	HasSubmittedDetails     *bool
	IsPasswordResetRequired *bool
}

// Session is the authentication state of one user.
type Session struct {
	AccessToken  string
	RefreshToken string
	// AccessTokenExpiry is set whenever AccessToken is assigned and is the
	// zero time when unknown.
	AccessTokenExpiry time.Time
	Identity
	// LastRefresh is the last completed refresh attempt, successful or not.
	LastRefresh time.Time
}

// HasToken reports whether an access token is present.
func (s Session) HasToken() bool {
	return s.AccessToken != ""
}

// Remaining returns the access token lifetime left at now. ok is false when
// the expiry is unknown.
func (s Session) Remaining(now time.Time) (d time.Duration, ok bool) {
	if s.AccessTokenExpiry.IsZero() {
		return 0, false
	}
	return s.AccessTokenExpiry.Sub(now), true
}

func (s Session) clone() Session {
	s.IsApproved = cloneBool(s.IsApproved)
	s.HasSubmittedDetails = cloneBool(s.HasSubmittedDetails)
	s.IsPasswordResetRequired = cloneBool(s.IsPasswordResetRequired)
	return s
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// LogoutResult reports a logout. Success is always true; Announce echoes
// whether the caller wants the logout shown to the user.
type LogoutResult struct {
	Success  bool
	Announce bool
}
