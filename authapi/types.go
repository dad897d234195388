package authapi

import (
	"bytes"
	"encoding/json"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// FlexString accepts a JSON string or number; ids arrive as either.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// LoginResponse is the login payload. The user id arrives as userId or
// user_id depending on the backend version.
type LoginResponse struct {
	Access                  string     `json:"access"`
	Refresh                 string     `json:"refresh"`
	Username                string     `json:"username"`
	UserType                string     `json:"usertype"`
	DjangoUserType          string     `json:"django_user_type"`
	UserIDCamel             FlexString `json:"userId"`
	UserIDSnake             FlexString `json:"user_id"`
	IsPasswordResetRequired *bool      `json:"isPasswordResetRequired"`
	Grade                   FlexString `json:"grade"`
	ProjectID               FlexString `json:"project_id"`
	Department              string     `json:"department"`
	IsApproved              *bool      `json:"is_approved"`
	HasSubmittedDetails     *bool      `json:"has_submitted_details"`
}

// UserID returns userId, falling back to user_id.
func (r *LoginResponse) UserID() string {
	if r.UserIDCamel != "" {
		return string(r.UserIDCamel)
	}
	return string(r.UserIDSnake)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

type verifyRequest struct {
	Token string `json:"token"`
}
