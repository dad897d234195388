package authapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/log"
)

func newServer(t *testing.T, path string, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), WithLogger(log.Nop()))
}

func TestLogin(t *testing.T) {
	c := newServer(t, "/authentication/login/", http.StatusOK, `{
		"access": "a1", "refresh": "r1", "username": "alice",
		"usertype": "contractor", "django_user_type": "admin",
		"user_id": 42, "isPasswordResetRequired": false,
		"grade": "B", "project_id": 7, "is_approved": true, "has_submitted_details": true
	}`)

	resp, err := c.Login(context.Background(), Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a1", resp.Access)
	assert.Equal(t, "r1", resp.Refresh)
	assert.Equal(t, "42", resp.UserID())
	assert.Equal(t, "7", string(resp.ProjectID))
	require.NotNil(t, resp.IsPasswordResetRequired)
	assert.False(t, *resp.IsPasswordResetRequired)
	require.NotNil(t, resp.IsApproved)
	assert.True(t, *resp.IsApproved)
}

func TestLoginUserIDCamelWins(t *testing.T) {
	var r LoginResponse
	require.NoError(t, json.Unmarshal([]byte(`{"userId":"u-1","user_id":"u-2"}`), &r))
	assert.Equal(t, "u-1", r.UserID())
}

func TestLoginRejected(t *testing.T) {
	c := newServer(t, "/authentication/login/", http.StatusUnauthorized, `{"detail":"No active account found"}`)
	_, err := c.Login(context.Background(), Credentials{Username: "alice", Password: "bad"})
	require.ErrorIs(t, err, errors.ErrAuthenticationFailed)
	assert.Equal(t, "No active account found", errors.FromError(err).Metadata["detail"])
}

func TestRefresh(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr error
	}{
		{"ok", http.StatusOK, `{"access":"a2"}`, "a2", nil},
		{"missing access", http.StatusOK, `{}`, "", errors.ErrRefreshUnavailable},
		{"malformed", http.StatusOK, `<html>`, "", errors.ErrRefreshUnavailable},
		{"code", http.StatusUnauthorized, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`, "", errors.ErrRefreshRejected},
		{"blacklisted", http.StatusUnauthorized, `{"detail":"Token is blacklisted"}`, "", errors.ErrRefreshRejected},
		{"unrecognized 401", http.StatusUnauthorized, `{"detail":"try later"}`, "", errors.ErrRefreshUnavailable},
		{"server error", http.StatusBadGateway, `bad gateway`, "", errors.ErrRefreshUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newServer(t, "/authentication/token/refresh/", tc.status, tc.body)
			got, err := c.Refresh(context.Background(), "r1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRefreshSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "r-xyz", in["refresh"])
		_, _ = w.Write([]byte(`{"access":"ok"}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, srv.Client()).Refresh(context.Background(), "r-xyz")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestLogout(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch r.URL.Query().Get("case") {
		case "4xx":
			w.WriteHeader(http.StatusBadRequest)
		case "5xx":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusResetContent)
		}
	}))
	defer srv.Close()

	for _, tc := range []struct {
		query   string
		wantErr bool
	}{{"", false}, {"4xx", false}, {"5xx", true}} {
		c := New(srv.URL, srv.Client(), WithLogger(log.Nop()), WithPaths(Paths{Logout: "/authentication/logout/?case=" + tc.query}))
		err := c.Logout(context.Background(), "r1", "a1")
		assert.Equal(t, tc.wantErr, err != nil, tc.query)
		assert.Equal(t, "Bearer a1", auth)
	}
}

func TestVerify(t *testing.T) {
	ok := newServer(t, "/authentication/token/verify/", http.StatusOK, `{}`)
	valid, err := ok.Verify(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, valid)

	bad := newServer(t, "/authentication/token/verify/", http.StatusUnauthorized, `{"code":"token_not_valid"}`)
	valid, err = bad.Verify(context.Background(), "a1")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIsRefreshRejection(t *testing.T) {
	assert.True(t, IsRefreshRejection([]byte(`{"code":"token_not_valid"}`)))
	assert.True(t, IsRefreshRejection([]byte(`{"detail":"Given token not valid for any token type"}`)))
	assert.True(t, IsRefreshRejection([]byte(`{"message":"Token has expired"}`)))
	assert.True(t, IsRefreshRejection([]byte(`Invalid token.`)))
	assert.False(t, IsRefreshRejection([]byte(`{"detail":"Authentication credentials were not provided."}`)))
}
