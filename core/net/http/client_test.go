package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/authentication/login/", r.URL.Path)
		assert.Equal(t, ContentTypeJSON, r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.Header().Set("Content-Type", ContentTypeJSON)
		_, _ = w.Write([]byte(`{"echo":"` + in["username"] + `"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL + "/api/"))
	var out struct{ Echo string }
	resp, err := c.Post(context.Background(), "/authentication/login/", map[string]string{"username": "alice"},
		WithBearer("abc"), WithResponse(&out))
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.NoError(t, resp.Err())
	assert.Equal(t, "alice", out.Echo)
}

func TestNon2xxNotDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"token_not_valid"}`))
	}))
	defer srv.Close()

	var out map[string]any
	resp, err := New(WithBaseURL(srv.URL)).Get(context.Background(), "x", WithResponse(&out))
	require.NoError(t, err)
	assert.Nil(t, out)

	var se *StatusError
	require.ErrorAs(t, resp.Err(), &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.JSONEq(t, `{"code":"token_not_valid"}`, string(se.Body))
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var out map[string]any
	_, err := New(WithBaseURL(srv.URL)).Get(context.Background(), "/", WithResponse(&out))
	assert.Error(t, err)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond)).Get(context.Background(), "/")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAbsoluteURL(t *testing.T) {
	c := New(WithBaseURL("https://ehs.example.com/api"))
	assert.Equal(t, "https://other.example.com/x", c.url("https://other.example.com/x"))
	assert.Equal(t, "https://ehs.example.com/api/token/refresh/", c.url("token/refresh/"))
}
