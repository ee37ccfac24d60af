package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

type academicApi struct {
	svc     *academic.Service
	userSvc *user.Service
}

// registerAcademicAPI mounts the current session/semester endpoints.
func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service, userSvc *user.Service) {
	api := academicApi{svc: svc, userSvc: userSvc}

	sg := g.Group("/sessions", jwt, userMiddleware(userSvc))
	sg.GET("/current", api.currentSession)
	// only the super admin moves the academic year forward; semesters roll
	// within a year and stay open to both admin tiers
	sg.POST("/set-current", api.setSession, requireRoles(userSvc, user.RoleSuperAdmin))

	mg := g.Group("/semesters", jwt, userMiddleware(userSvc))
	mg.GET("/current", api.currentSemester)
	mg.POST("/set-current", api.setSemester, requireRoles(userSvc, user.AdminRoles...))
}

func (api *academicApi) currentSession(ctx echo.Context) error {
	sess, err := api.svc.CurrentSession(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Current session retrieved.", sess)
}

func (api *academicApi) setSession(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var data academic.SetSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetSession")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	sess, err := api.svc.SetCurrentSession(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Current session updated.", sess)
}

func (api *academicApi) currentSemester(ctx echo.Context) error {
	sem, err := api.svc.CurrentSemester(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Current semester retrieved.", sem)
}

func (api *academicApi) setSemester(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var data academic.SetSemester
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetSemester")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	sem, err := api.svc.SetCurrentSemester(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Current semester updated.", sem)
}
