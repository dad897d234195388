package session

import (
	"strconv"
	"time"
)

// Durable storage keys. A key is removed, never stored empty, when its
// field is unset.
const (
	KeyToken                   = "token"
	KeyRefreshToken            = "refreshToken"
	KeyUsername                = "username"
	KeyProjectID               = "projectId"
	KeyUserType                = "usertype"
	KeyDjangoUserType          = "django_user_type"
	KeyUserID                  = "userId"
	KeyIsPasswordResetRequired = "isPasswordResetRequired"
	KeyLastRefreshTime         = "lastRefreshTime"
	KeyTokenExpiry             = "tokenExpiry"
	KeyGrade                   = "grade"
	KeyDepartment              = "department"
	KeyIsApproved              = "isApproved"
	KeyHasSubmittedDetails     = "hasSubmittedDetails"
)

// Keys lists every persisted key.
var Keys = []string{
	KeyToken,
	KeyRefreshToken,
	KeyUsername,
	KeyProjectID,
	KeyUserType,
	KeyDjangoUserType,
	KeyUserID,
	KeyIsPasswordResetRequired,
	KeyLastRefreshTime,
	KeyTokenExpiry,
	KeyGrade,
	KeyDepartment,
	KeyIsApproved,
	KeyHasSubmittedDetails,
}

// encode renders s as storage values; "" means remove. Timestamps are
// unix milliseconds.
func encode(s Session) map[string]string {
	return map[string]string{
		KeyToken:                   s.AccessToken,
		KeyRefreshToken:            s.RefreshToken,
		KeyUsername:                s.Username,
		KeyProjectID:               s.ProjectID,
		KeyUserType:                s.UserType,
		KeyDjangoUserType:          s.DjangoUserType,
		KeyUserID:                  s.UserID,
		KeyIsPasswordResetRequired: formatBool(s.IsPasswordResetRequired),
		KeyLastRefreshTime:         formatTime(s.LastRefresh),
		KeyTokenExpiry:             formatTime(s.AccessTokenExpiry),
		KeyGrade:                   s.Grade,
		KeyDepartment:              s.Department,
		KeyIsApproved:              formatBool(s.IsApproved),
		KeyHasSubmittedDetails:     formatBool(s.HasSubmittedDetails),
	}
}

func decode(values map[string]string) Session {
	return Session{
		AccessToken:       values[KeyToken],
		RefreshToken:      values[KeyRefreshToken],
		AccessTokenExpiry: parseTime(values[KeyTokenExpiry]),
		LastRefresh:       parseTime(values[KeyLastRefreshTime]),
		Identity: Identity{
			Username:                values[KeyUsername],
			UserID:                  values[KeyUserID],
			UserType:                values[KeyUserType],
			DjangoUserType:          values[KeyDjangoUserType],
			ProjectID:               values[KeyProjectID],
			Department:              values[KeyDepartment],
			Grade:                   values[KeyGrade],
			IsApproved:              parseBool(values[KeyIsApproved]),
			HasSubmittedDetails:     parseBool(values[KeyHasSubmittedDetails]),
			IsPasswordResetRequired: parseBool(values[KeyIsPasswordResetRequired]),
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func parseBool(s string) *bool {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}
