// Package response writes the admin server's JSON envelope.
package response

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/authsession/errors"
)

const (
	defaultSuccessMessage = "success"
	successCode           = http.StatusOK

	defaultErrorMessage = "service temporarily unavailable"
	defaultErrorCode    = http.StatusServiceUnavailable
)

type Response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r *Response) reset() {
	r.Code = 0
	r.Data = nil
	r.Message = ""
}

var responsePool = sync.Pool{
	New: func() any {
		return &Response{}
	},
}

func acquireResponse() *Response {
	return responsePool.Get().(*Response)
}

func releaseResponse(r *Response) {
	if r != nil {
		r.reset()
		responsePool.Put(r)
	}
}

// GinJSON writes a 200 success envelope around data.
func GinJSON(c *gin.Context, data any) {
	if c == nil {
		return
	}

	resp := acquireResponse()
	defer releaseResponse(resp)

	resp.Code = successCode
	resp.Data = data
	resp.Message = defaultSuccessMessage
	c.JSON(successCode, resp)
}

// GinJSONE writes err and aborts. The HTTP status follows the error code
// when it is a valid status, otherwise 500.
func GinJSONE(c *gin.Context, err error) {
	if c == nil {
		return
	}

	defer c.Abort()

	resp := acquireResponse()
	defer releaseResponse(resp)

	if err == nil {
		resp.Code, resp.Message = defaultErrorCode, defaultErrorMessage
		c.JSON(defaultErrorCode, resp)
		return
	}

	e := errors.FromError(err)
	resp.Code, resp.Message = e.Code, e.Message
	status := e.Code
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, resp)
}
