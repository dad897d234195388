package desensitize

const mask = "******"

var (
	// BearerRule masks the credential of an Authorization header.
	BearerRule = MustPatternRule(
		"bearer",
		`(?i)(bearer\s+)[A-Za-z0-9\-_.~+/]+=*`,
		"${1}"+mask,
	)

	// JWTRule masks a JWT anywhere in the line.
	JWTRule = MustPatternRule(
		"jwt",
		`eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`,
		mask,
	)

	// CSRFRule masks the X-CSRFToken header and the csrftoken cookie.
	CSRFRule = MustPatternRule(
		"csrf",
		`(?i)(csrftoken[=:]\s*"?)[A-Za-z0-9]+`,
		"${1}"+mask,
	)

	// CredentialsRule masks the login, refresh and logout bodies and the
	// persisted token keys.
	CredentialsRule = MustFieldRule("credentials",
		"access",
		"refresh",
		"token",
		"refreshToken",
		"password",
	)
)

// BuiltinRules returns every rule for session credentials.
func BuiltinRules() []Rule {
	return []Rule{
		BearerRule,
		JWTRule,
		CSRFRule,
		CredentialsRule,
	}
}
