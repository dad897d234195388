package authapi

import (
	"encoding/json"
	"strings"
)

// CodeTokenNotValid is the machine-readable code the backend sends with a
// rejected token.
const CodeTokenNotValid = "token_not_valid"

// LegacyRejectionPhrases are matched case-insensitively against the error
// message when the backend omits the code. Older backend builds only send a
// human-readable detail, so this list stays until every deployment returns
// CodeTokenNotValid.
var LegacyRejectionPhrases = []string{
	"blacklisted",
	"token invalid",
	"invalid token",
	"token has expired",
	"given token not valid",
}

// ErrorBody is the error envelope returned by the auth endpoints.
type ErrorBody struct {
	Detail  string `json:"detail"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Text joins every message field.
func (b ErrorBody) Text() string {
	return strings.Join([]string{b.Detail, b.Message, b.Error}, " ")
}

// ParseErrorBody decodes raw; anything that is not a JSON object becomes the
// Detail.
func ParseErrorBody(raw []byte) ErrorBody {
	var b ErrorBody
	if err := json.Unmarshal(raw, &b); err != nil {
		return ErrorBody{Detail: string(raw)}
	}
	return b
}

// ContainsPhrase reports whether text contains any phrase, ignoring case.
func ContainsPhrase(text string, phrases []string) bool {
	text = strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(text, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// IsRefreshRejection reports whether a 401 body from the refresh endpoint
// means the refresh token itself is dead. The code is checked first; the
// phrase list is the fallback.
func IsRefreshRejection(raw []byte) bool {
	b := ParseErrorBody(raw)
	if b.Code == CodeTokenNotValid {
		return true
	}
	return ContainsPhrase(b.Text(), LegacyRejectionPhrases)
}
