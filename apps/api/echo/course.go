package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core/course"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

type courseApi struct {
	svc     *course.Service
	userSvc *user.Service
}

// registerCourseAPI mounts the course registry endpoints.
func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, userSvc *user.Service) {
	api := courseApi{svc: svc, userSvc: userSvc}

	cg := g.Group("/courses", jwt, userMiddleware(userSvc))

	cg.GET("", api.query)
	cg.GET("/me", api.userCourses)
	// The param name must match the ":id" routes below: echo keeps a single
	// param name per path segment, so mixed names leave ctx.Param empty.
	cg.GET("/:id", api.retrieve)

	admin := requireRoles(userSvc, user.AdminRoles...)
	cg.POST("", api.create, admin)
	cg.PUT("/:id", api.update, admin)
	cg.DELETE("/:id", api.destroy, admin)
	cg.POST("/sync", api.sync, admin)
}

func (api *courseApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	crs, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, "Course created.", crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter, err := course.ParseQueryFilter(ctx.QueryParams())
	if err != nil {
		return err
	}
	courses, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return respond(ctx, http.StatusOK, "Courses retrieved.", courses)
}

func (api *courseApi) userCourses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	courses, err := api.svc.GetUserCourses(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Courses retrieved.", courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByCode(ctx.Request().Context(), pathParam(ctx, "id"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Course retrieved.", crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Course updated.", crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Course deleted.")
}

func (api *courseApi) sync(ctx echo.Context) error {
	var data course.SyncCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SyncCourse")
	}
	crs, err := api.svc.Sync(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Course synced.", crs)
}
