// Package middleware provides the gin middleware shared by the HTTP servers.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	logctx "github.com/kart-io/catalog-chat/pkg/infra/logger"
)

// HeaderXRequestID carries the request id in both directions.
const HeaderXRequestID = "X-Request-ID"

// maxRequestIDLen bounds client supplied ids before they reach the logs.
const maxRequestIDLen = 128

type requestIDKey struct{}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID tags each request with an id, echoed in the X-Request-ID
// response header. A well-formed incoming X-Request-ID is reused; otherwise
// a ULID is generated.
//
// W3C trace context headers are extracted into the request context so that
// outbound provider calls continue the caller's trace. The request id and
// trace ids are attached as logging fields.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if !validRequestID(requestID) {
			requestID = ulid.Make().String()
		}
		c.Header(HeaderXRequestID, requestID)

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx = context.WithValue(ctx, requestIDKey{}, requestID)
		ctx = logctx.WithTraceContext(logctx.WithRequestID(ctx, requestID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
