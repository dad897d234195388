package mockbackend

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxClaims = "mockbackend.claims"

	detailStale       = "Given token not valid for any token type"
	detailInvalid     = "Token is invalid or expired"
	detailBlacklisted = "Token is blacklisted"
	detailNoAuth      = "Authentication credentials were not provided."
	codeNotValid      = "token_not_valid"
)

func tokenError(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail, "code": codeNotValid})
}

func (b *Backend) handleLogin(c *gin.Context) {
	b.login.Add(1)
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password are required"})
		return
	}
	u, ok := b.users[in.Username]
	if !ok || u.Password != in.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}

	access, _, err := b.issuer.issue(u, typeAccess)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	refresh, _, err := b.issuer.issue(u, typeRefresh)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.SetCookie("csrftoken", strings.ReplaceAll(uuid.NewString(), "-", ""), 0, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{
		"access":                  access,
		"refresh":                 refresh,
		"username":                u.Username,
		"usertype":                u.UserType,
		"django_user_type":        u.DjangoUserType,
		"user_id":                 u.UserID,
		"isPasswordResetRequired": u.IsPasswordResetRequired,
		"grade":                   u.Grade,
		"project_id":              u.ProjectID,
		"department":              u.Department,
		"is_approved":             u.IsApproved,
		"has_submitted_details":   u.HasSubmittedDetails,
	})
}

func (b *Backend) handleRefresh(c *gin.Context) {
	b.refresh.Add(1)

	b.mu.Lock()
	delay := b.refreshDelay
	var fail int
	if len(b.refreshFailures) > 0 {
		fail = b.refreshFailures[0]
		b.refreshFailures = b.refreshFailures[1:]
	}
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			return
		}
	}
	if fail != 0 {
		c.JSON(fail, gin.H{"detail": "upstream unavailable"})
		return
	}

	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}
	claims, err := b.issuer.parse(in.Refresh, typeRefresh)
	if err != nil {
		tokenError(c, detailInvalid)
		return
	}
	if revoked, err := b.blacklist.Contains(c.Request.Context(), claims.ID); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	} else if revoked {
		tokenError(c, detailBlacklisted)
		return
	}

	u, ok := b.users[claims.Username]
	if !ok {
		tokenError(c, detailInvalid)
		return
	}
	access, _, err := b.issuer.issue(u, typeAccess)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (b *Backend) handleVerify(c *gin.Context) {
	b.verify.Add(1)
	var in struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"token": []string{"This field is required."}})
		return
	}
	claims, err := b.issuer.parse(in.Token, "")
	if err != nil {
		tokenError(c, detailInvalid)
		return
	}
	if b.revoked(c, claims) {
		tokenError(c, detailBlacklisted)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (b *Backend) handleLogout(c *gin.Context) {
	b.logout.Add(1)
	if _, err := b.bearer(c); err != nil {
		tokenError(c, detailStale)
		return
	}
	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "refresh token required"})
		return
	}
	claims, err := b.issuer.parse(in.Refresh, typeRefresh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": detailInvalid})
		return
	}
	if err := b.blacklist.Add(c.Request.Context(), claims.ID, b.issuer.remaining(claims)); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusResetContent)
}

// authenticate guards /api with the bearer access token.
func (b *Backend) authenticate(c *gin.Context) {
	b.api.Add(1)
	claims, err := b.bearer(c)
	switch {
	case errors.Is(err, errNoCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailNoAuth})
		return
	case err != nil:
		tokenError(c, detailStale)
		return
	}
	if b.revoked(c, claims) {
		tokenError(c, detailBlacklisted)
		return
	}
	c.Set(ctxClaims, claims)
	c.Next()
}

// checkCSRF requires X-CSRFToken to match the csrftoken cookie on unsafe
// methods.
func (b *Backend) checkCSRF(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		c.Next()
		return
	}
	cookie, err := c.Cookie("csrftoken")
	if err != nil || cookie == "" || c.GetHeader("X-CSRFToken") != cookie {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "CSRF Failed: CSRF token missing or incorrect."})
		return
	}
	c.Next()
}

func (b *Backend) handleAPI(c *gin.Context) {
	claims := c.MustGet(ctxClaims).(*Claims)
	c.JSON(http.StatusOK, gin.H{
		"path":     c.Request.URL.Path,
		"method":   c.Request.Method,
		"username": claims.Username,
	})
}

var errNoCredentials = errors.New("no bearer token")

func (b *Backend) bearer(c *gin.Context) (*Claims, error) {
	h := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return nil, errNoCredentials
	}
	return b.issuer.parse(token, typeAccess)
}

func (b *Backend) revoked(c *gin.Context, claims *Claims) bool {
	if claims.TokenType == typeAccess {
		b.mu.Lock()
		_, ok := b.revokedAccess[claims.ID]
		b.mu.Unlock()
		if ok {
			return true
		}
	}
	hit, err := b.blacklist.Contains(c.Request.Context(), claims.ID)
	if err != nil {
		b.logger.Warn().Err(err).Msg("blacklist lookup failed")
	}
	return hit
}
