package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/course"
	"github.com/hazard-Tom2004/TESA-API/core/material"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHTTPForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// statusFor maps domain errors to HTTP statuses. Unknown errors fall through
// to 500 in the handler.
func statusFor(err error) (int, bool) {
	switch err {
	case user.ErrInvalidCredentials, user.ErrInvalidToken, user.ErrNotVerified,
		material.ErrUnsupportedFormat, material.ErrFileRequired:
		return http.StatusBadRequest, true
	case user.ErrInvalidRefresh:
		return http.StatusUnauthorized, true
	case user.ErrRoleMismatch, user.ErrRefreshRevoked:
		return http.StatusForbidden, true
	case user.ErrNotFound, course.ErrNotFound, material.ErrNotFound, material.ErrSuggestionNotFound:
		return http.StatusNotFound, true
	case user.ErrEmailExists, user.ErrAlreadyVerified, user.ErrAlreadyAdmin, user.ErrNotAdmin,
		course.ErrCourseExists, material.ErrAlreadyReviewed:
		return http.StatusConflict, true
	case academic.ErrNoCurrentSession, academic.ErrNoCurrentSemester:
		return http.StatusPreconditionFailed, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that maps our
// errors onto the response envelope. signalShutdown is called whenever a
// core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string
		var data interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = "missing or malformed token"
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = "validation failed"
			data = fldErrs
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = "validation failed"
			if fldErrs := origErr.FieldMap(); fldErrs != nil {
				data = fldErrs
			} else {
				message = origErr.Error()
			}
		default:
			if c, ok := statusFor(cause); ok {
				code = c
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
				usr.Role = claims.Role
			}
			logger.Error(message, errors.Wrap(err, message), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			var resErr error
			if ctx.Request().Method == http.MethodHead {
				resErr = ctx.NoContent(code)
			} else {
				resErr = respond(ctx, code, message, data)
			}
			if resErr != nil {
				ctx.Echo().Logger.Error(resErr)
			}
		}
	}
}
