package echoapi

import (
	"net/url"

	"github.com/labstack/echo/v4"
)

// pathParam returns a decoded path parameter. The router matches on the raw
// escaped segment, so course codes and categories with spaces arrive as
// "GEM%20201" otherwise.
func pathParam(ctx echo.Context, name string) string {
	raw := ctx.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// Envelope is the uniform response shape: success flag, human message, and
// an optional payload.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(ctx echo.Context, code int, message string, data ...interface{}) error {
	env := Envelope{Success: code < 400, Message: message}
	if len(data) > 0 {
		env.Data = data[0]
	}
	return ctx.JSON(code, env)
}
