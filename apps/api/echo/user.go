package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

type authApi struct {
	conf *core.Config
	svc  *user.Service
}

// registerAuthAPI mounts the credential and token lifecycle endpoints.
func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc *user.Service) {
	api := authApi{conf: conf, svc: svc}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.GET("/verify-email/:token", api.verifyEmail)
	ag.POST("/resend-verification", api.resendVerification)
	ag.POST("/login", api.loginStudent)
	ag.POST("/admin/login", api.loginAdmin)
	ag.POST("/super-admin/login", api.loginSuperAdmin)
	ag.POST("/refresh-token", api.refreshToken)
	ag.POST("/request-password-reset", api.requestPasswordReset)
	ag.GET("/verify-reset-token/:token", api.verifyResetToken)
	ag.POST("/reset-password", api.resetPassword)

	// authed endpoints
	tg := ag.Group("", jwt, userMiddleware(svc))
	tg.POST("/change-password", api.changePassword)
	tg.POST("/logout", api.logout)
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated,
		"Registration successful. Check your email to verify your account.", usr.Public())
}

func (api *authApi) verifyEmail(ctx echo.Context) error {
	usr, err := api.svc.VerifyEmail(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Email verified successfully.", usr.Public())
}

func (api *authApi) resendVerification(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.ResendVerification(ctx.Request().Context(), data.Email); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Verification email sent.")
}

func (api *authApi) loginStudent(ctx echo.Context) error {
	return api.login(ctx, user.RoleStudent)
}

func (api *authApi) loginAdmin(ctx echo.Context) error {
	return api.login(ctx, user.RoleAdmin)
}

func (api *authApi) loginSuperAdmin(ctx echo.Context) error {
	return api.login(ctx, user.RoleSuperAdmin)
}

func (api *authApi) login(ctx echo.Context, expectedRole string) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, pair, err := api.svc.Login(ctx.Request().Context(), data.Email, data.Password, expectedRole)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, fmt.Sprintf("Welcome back, %s", usr.FullName), LoginResponse{
		TokenPair: pair,
		User:      usr,
	})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pair, err := api.svc.RefreshToken(ctx.Request().Context(), data.RefreshToken)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Token refreshed.", pair)
}

func (api *authApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = api.svc.ChangePassword(ctx.Request().Context(), usr.ID, data); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Password changed successfully.")
}

func (api *authApi) logout(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if err = api.svc.Logout(ctx.Request().Context(), usr.ID); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Logged out.")
}

func (api *authApi) requestPasswordReset(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return respond(ctx, http.StatusOK,
		"If the email address supplied is associated with an account on this system, "+
			"an email will arrive in your inbox shortly with instructions to reset your password.")
}

func (api *authApi) verifyResetToken(ctx echo.Context) error {
	if _, err := api.svc.VerifyResetToken(ctx.Request().Context(), ctx.Param("token")); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Token is valid.")
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Password has been reset with the new password.")
}

type userApi struct {
	svc   *user.Service
	blobs core.BlobService
}

// registerUserAPI mounts the profile and admin-management endpoints.
func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service, blobs core.BlobService) {
	api := userApi{svc: svc, blobs: blobs}

	ug := g.Group("/users", jwt, userMiddleware(svc))

	ug.GET("", api.query, requireRoles(svc, user.AdminRoles...))
	ug.GET("/:id", api.retrieve)
	ug.GET("/email/:email", api.retrieveByEmail, requireRoles(svc, user.AdminRoles...))
	ug.PUT("/:id", api.update)
	ug.PUT("/:id/approve-updates", api.approvePendingUpdate, requireRoles(svc, user.AdminRoles...))
	ug.POST("/avatar", api.uploadAvatar)
	ug.DELETE("/:id", api.destroy, requireRoles(svc, user.AdminRoles...))
	ug.PUT("/:id/assign-admin", api.promoteAdmin, requireRoles(svc, user.RoleSuperAdmin))
	ug.PUT("/:id/revoke-admin", api.revokeAdmin, requireRoles(svc, user.RoleSuperAdmin))
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return respond(ctx, http.StatusOK, "Users retrieved.", users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if id != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHTTPNotFound
	}

	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "User retrieved.", usr)
}

func (api *userApi) retrieveByEmail(ctx echo.Context) error {
	usr, err := api.svc.GetByEmail(ctx.Request().Context(), pathParam(ctx, "email"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "User retrieved.", usr)
}

func (api *userApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if id != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHTTPForbidden
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	usr, err := api.svc.Update(ctx.Request().Context(), ctxUsr, id, data)
	if err != nil {
		return err
	}

	msg := "User updated."
	if usr.PendingUpdate != nil {
		msg = "Update submitted for admin approval."
	}
	return respond(ctx, http.StatusOK, msg, usr)
}

func (api *userApi) approvePendingUpdate(ctx echo.Context) error {
	usr, err := api.svc.ApprovePendingUpdate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Pending updates applied.", usr)
}

func (api *userApi) uploadAvatar(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	up, err := receiveUpload(ctx, "avatar")
	if err != nil {
		return err
	}
	key := fmt.Sprintf("avatars/%s-%s", ctxUsr.ID, up.Filename)
	url, err := api.blobs.Put(ctx.Request().Context(), key, core.Upload{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Content:     bytes.NewReader(up.Content),
	})
	if err != nil {
		return errors.Wrap(err, "storing avatar")
	}
	usr, err := api.svc.SetAvatar(ctx.Request().Context(), ctxUsr.ID, url)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Avatar updated.", usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	// ctxUser cannot delete themselves
	if id == ctxUsr.ID {
		return errHTTPForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "User deleted.")
}

func (api *userApi) promoteAdmin(ctx echo.Context) error {
	usr, err := api.svc.PromoteAdmin(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "User promoted to admin.", usr)
}

func (api *userApi) revokeAdmin(ctx echo.Context) error {
	usr, err := api.svc.RevokeAdmin(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, "Admin role revoked.", usr)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		user.TokenPair
		User user.User `json:"user"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

func (er *EmailRequest) Validate() error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return core.Validate.Struct(er)
}

func (rr *RefreshRequest) Validate() error {
	return core.Validate.Struct(rr)
}
