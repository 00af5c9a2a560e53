// Package httputils provides HTTP utility functions.
package httputils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/catalog-chat/pkg/errors"
)

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteResponse writes data with status 200, or the errno carried by err
// with its HTTP status. Errors without an errno are reported as internal.
func WriteResponse(c *gin.Context, err error, data any) {
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// WriteError writes err as {code, message}.
func WriteError(c *gin.Context, err error) {
	e := errors.FromError(err)
	msg := e.MessageEN
	if cause := e.Cause(); cause != nil {
		msg = msg + ": " + cause.Error()
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), ErrorResponse{Code: e.Code, Message: msg})
}
