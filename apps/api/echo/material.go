package echoapi

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/material"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

type materialApi struct {
	conf    *core.Config
	svc     *material.Service
	userSvc *user.Service
}

// registerMaterialAPI mounts the material and suggestion endpoints.
func registerMaterialAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc *material.Service, userSvc *user.Service) {
	api := materialApi{conf: conf, svc: svc, userSvc: userSvc}

	mg := g.Group("/materials", jwt, userMiddleware(userSvc))
	mg.GET("/course/:courseCode", api.byCourse)
	mg.GET("/type/:type", api.byCategory)
	mg.GET("/search", api.search)

	admin := requireRoles(userSvc, user.AdminRoles...)
	mg.POST("/upload", api.upload, admin)
	mg.POST("/batch-upload", api.batchUpload, admin)

	sg := g.Group("/suggestions", jwt, userMiddleware(userSvc))
	sg.POST("", api.createSuggestion)
	sg.GET("/pending", api.pendingSuggestions, admin)
	sg.PUT("/:id/approve", api.approveSuggestion, admin)
	sg.PUT("/:id/reject", api.rejectSuggestion, admin)
	sg.GET("/stats", api.suggestionStats, admin)
}

// receiveUpload extracts a multipart file by field name. A missing file is
// not an error here, callers decide whether one is required.
func receiveUpload(ctx echo.Context, field string) (*material.Upload, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	content, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	return &material.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// bindMaterialForm reads NewMaterial fields from a multipart form.
func bindMaterialForm(ctx echo.Context) material.NewMaterial {
	return material.NewMaterial{
		CourseCode:  ctx.FormValue("courseCode"),
		Name:        ctx.FormValue("materialName"),
		Description: ctx.FormValue("materialDescription"),
		Category:    ctx.FormValue("type"),
		VideoURL:    ctx.FormValue("youtubeUrl"),
	}
}

func (api *materialApi) upload(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	data := bindMaterialForm(ctx)
	up, err := receiveUpload(ctx, "file")
	if err != nil {
		return err
	}
	mat, err := api.svc.Upload(ctx.Request().Context(), data, up, ctxUsr.ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, "Material uploaded successfully.", mat)
}

// batchUpload takes a JSON "items" form field describing each entry plus one
// "file<index>" multipart part per binary item.
func (api *materialApi) batchUpload(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var metas []material.NewMaterial
	if err = json.Unmarshal([]byte(ctx.FormValue("items")), &metas); err != nil {
		return core.NewValidationError(nil, core.FieldError{
			Field: "items", Error: "must be a JSON array of material entries",
		})
	}

	items := make([]material.BatchItem, 0, len(metas))
	for i, meta := range metas {
		up, rerr := receiveUpload(ctx, "file"+strconv.Itoa(i))
		if rerr != nil {
			return rerr
		}
		items = append(items, material.BatchItem{NewMaterial: meta, File: up})
	}

	res, err := api.svc.BatchUpload(ctx.Request().Context(), items, ctxUsr.ID)
	if err != nil {
		return err
	}

	code := http.StatusCreated
	msg := "Batch upload complete."
	if len(res.Failures) > 0 {
		code = http.StatusMultiStatus
		msg = "Batch upload completed with failures."
	}
	return respond(ctx, code, msg, res)
}

func (api *materialApi) byCourse(ctx echo.Context) error {
	materials, err := api.svc.GetByCourse(ctx.Request().Context(), pathParam(ctx, "courseCode"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Materials retrieved.", materials)
}

func (api *materialApi) byCategory(ctx echo.Context) error {
	materials, err := api.svc.GetByCategory(ctx.Request().Context(), pathParam(ctx, "type"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Materials retrieved.", materials)
}

func (api *materialApi) search(ctx echo.Context) error {
	materials, err := api.svc.Search(ctx.Request().Context(), ctx.QueryParam("q"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Materials retrieved.", materials)
}

func (api *materialApi) createSuggestion(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	data := material.NewSuggestion{
		NewMaterial: bindMaterialForm(ctx),
		Email:       ctx.FormValue("email"),
	}
	up, err := receiveUpload(ctx, "file")
	if err != nil {
		return err
	}
	sug, err := api.svc.CreateSuggestion(ctx.Request().Context(), data, up, ctxUsr.ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, "Suggestion uploaded successfully.", sug)
}

func (api *materialApi) pendingSuggestions(ctx echo.Context) error {
	suggestions, err := api.svc.PendingSuggestions(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "These are the suggestions.", suggestions)
}

func (api *materialApi) approveSuggestion(ctx echo.Context) error {
	return api.review(ctx, true, "Suggestion approved.")
}

func (api *materialApi) rejectSuggestion(ctx echo.Context) error {
	return api.review(ctx, false, "Suggestion rejected.")
}

func (api *materialApi) review(ctx echo.Context, approve bool, msg string) error {
	var data material.ReviewSuggestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewSuggestion")
	}
	sug, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), approve, data.Review)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, msg, sug)
}

func (api *materialApi) suggestionStats(ctx echo.Context) error {
	stats, err := api.svc.SuggestionStats(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Suggestion stats retrieved.", stats)
}
