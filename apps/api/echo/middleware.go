package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core/user"
)

// userMiddleware resolves the authenticated user from the verified claims and
// attaches it to the request context. It rejects tokens whose user no longer
// exists.
func userMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextUser(ctx, svc); err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return err
			}
			return next(ctx)
		}
	}
}

// requireRoles gates a route to users holding any of the given roles. The
// check runs against the freshly fetched user, not the token claims, so a
// demotion applies immediately.
func requireRoles(svc *user.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHTTPForbidden
		}
	}
}
