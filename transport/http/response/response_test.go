package response

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kochabx/authsession/errors"
)

func TestGinJSON(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	GinJSON(c, gin.H{"username": "alice"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":200`)
	assert.Contains(t, w.Body.String(), `"message":"success"`)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestGinJSONEStructured(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	GinJSONE(c, errors.ErrSessionExpired)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":401`)
	assert.Contains(t, w.Body.String(), `"message":"Session expired."`)
	assert.True(t, c.IsAborted())
}

func TestGinJSONEPlain(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	GinJSONE(c, fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGinJSONENil(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	GinJSONE(c, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), defaultErrorMessage)
}
