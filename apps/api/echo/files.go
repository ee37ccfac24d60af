package echoapi

import (
	"io"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/material"
)

type fileApi struct {
	svc    *material.Service
	client *http.Client
}

// registerFileAPI mounts the file retrieval endpoints. Files are served by
// proxying the stored URL so the storage backend stays private.
func registerFileAPI(g *echo.Group, conf *core.Config, svc *material.Service) {
	api := fileApi{
		svc: svc,
		// no overall client timeout: downloads may be long. The transport
		// bounds connection setup and the wait for upstream headers instead,
		// and cancellation of the body transfer rides the request context.
		client: &http.Client{Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: conf.ExternalTimeout}).DialContext,
			TLSHandshakeTimeout:   conf.ExternalTimeout,
			ResponseHeaderTimeout: conf.ExternalTimeout,
		}},
	}

	fg := g.Group("/files")
	fg.GET("/:id", api.fetch)
	fg.GET("/:id/type", api.fileType)
	fg.GET("/:id/stream", api.stream)
	fg.GET("/:id/preview", api.preview)
}

func (api *fileApi) attachment(ctx echo.Context) (material.Attachment, error) {
	mat, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return material.Attachment{}, err
	}
	return mat.Attachment, nil
}

// fetch proxies the stored file to the client. The upstream request carries
// the incoming request's context so an aborted download stops the transfer.
func (api *fileApi) fetch(ctx echo.Context) error {
	att, err := api.attachment(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx.Request().Context(), http.MethodGet, att.URL, nil)
	if err != nil {
		return errors.Wrap(err, "building upstream request")
	}
	res, err := api.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetching file")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return errHTTPNotFound
	}
	return ctx.Stream(res.StatusCode, res.Header.Get("Content-Type"), res.Body)
}

func (api *fileApi) fileType(ctx echo.Context) error {
	att, err := api.attachment(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "File type retrieved.", echo.Map{"fileType": att.Kind})
}

// stream proxies video content with byte-range passthrough so players can
// seek.
func (api *fileApi) stream(ctx echo.Context) error {
	att, err := api.attachment(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx.Request().Context(), http.MethodGet, att.URL, nil)
	if err != nil {
		return errors.Wrap(err, "building upstream request")
	}
	if rng := ctx.Request().Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}
	res, err := api.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetching file")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return errHTTPNotFound
	}

	header := ctx.Response().Header()
	for _, h := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := res.Header.Get(h); v != "" {
			header.Set(h, v)
		}
	}
	ctx.Response().WriteHeader(res.StatusCode)
	_, err = io.Copy(ctx.Response(), res.Body)
	return errors.Wrap(err, "streaming file")
}

// preview hands the client the stored URL directly, for inline document
// viewers.
func (api *fileApi) preview(ctx echo.Context) error {
	att, err := api.attachment(ctx)
	if err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, att.URL)
}
