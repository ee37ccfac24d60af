package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/token"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRoleMismatch       = errors.New("account does not match the requested role")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrNotVerified        = errors.New("account is not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
	ErrRefreshRevoked     = errors.New("refresh token has been revoked")
	ErrAlreadyAdmin       = errors.New("user is already an admin")
	ErrNotAdmin           = errors.New("user is not an admin")
)

type Repository interface {
	CreateUser(ctx context.Context, usr *User) error
	UpdateUser(ctx context.Context, usr *User) error
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	QueryAllUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Service struct {
	conf   *core.Config
	repo   Repository
	tokens token.Repository
	mail   core.EmailService
	log    core.Logger
}

func NewService(conf *core.Config, repo Repository, tokens token.Repository, mail core.EmailService, log core.Logger) *Service {
	return &Service{conf: conf, repo: repo, tokens: tokens, mail: mail, log: log}
}

func (svc *Service) CheckEmailUniqueness(email string) error {
	_, err := svc.repo.GetUserByEmail(context.Background(), email)
	if err == nil {
		return ErrEmailExists
	}
	if errors.Cause(err) == ErrNotFound {
		return nil
	}
	return err
}

// Register creates an unverified account and sends the verification email.
// Token and email failures do not fail registration, the user can request a
// resend.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:         uuid.New().String(),
		FullName:   nu.FullName,
		Email:      nu.Email,
		Department: nu.Department,
		Level:      nu.Level,
		Role:       RoleStudent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if err := svc.repo.CreateUser(ctx, &usr); err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	if err := svc.sendVerificationEmail(ctx, usr); err != nil {
		svc.log.Error("sending verification email", err)
	}
	return usr, nil
}

func (svc *Service) sendVerificationEmail(ctx context.Context, usr User) error {
	tok, err := token.New(usr.ID, token.PurposeEmailVerification)
	if err != nil {
		return errors.Wrap(err, "minting verification token")
	}
	if err = svc.tokens.SaveToken(ctx, tok); err != nil {
		return errors.Wrap(err, "saving verification token")
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      fmt.Sprintf("Welcome to %s! Confirm your email", svc.conf.AppName),
		TemplateName: "email_verification",
		TemplateData: map[string]interface{}{
			"FullName": usr.FullName,
			"Token":    tok.Secret,
		},
	})
	return nil
}

// VerifyEmail consumes a single-use verification token and marks the account
// verified.
func (svc *Service) VerifyEmail(ctx context.Context, secret string) (User, error) {
	tok, err := svc.tokens.GetTokenBySecret(ctx, token.PurposeEmailVerification, secret)
	if err != nil {
		return User{}, ErrInvalidToken
	}
	if tok.Expired(token.TTL(svc.conf, tok.Purpose), time.Now()) {
		return User{}, ErrInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, tok.UserID)
	if err != nil {
		return User{}, err
	}
	if usr.Verified {
		return usr, ErrAlreadyVerified
	}

	usr.Verified = true
	usr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateUser(ctx, &usr); err != nil {
		return User{}, errors.Wrap(err, "marking user verified")
	}
	if err = svc.tokens.DeleteTokenBySecret(ctx, token.PurposeEmailVerification, secret); err != nil {
		svc.log.Error("deleting consumed verification token", err)
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      fmt.Sprintf("Your %s account is verified", svc.conf.AppName),
		TemplateName: "account_verified",
		TemplateData: map[string]interface{}{"FullName": usr.FullName},
	})
	return usr, nil
}

// ResendVerification invalidates any previous verification token before
// issuing a fresh one.
func (svc *Service) ResendVerification(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true))
	if err != nil {
		return err
	}
	if usr.Verified {
		return ErrAlreadyVerified
	}
	if err = svc.tokens.DeleteUserTokens(ctx, usr.ID, token.PurposeEmailVerification); err != nil {
		return errors.Wrap(err, "clearing stale verification tokens")
	}
	return svc.sendVerificationEmail(ctx, usr)
}

// Login authenticates by email and password on a role-scoped channel. The role
// check happens before the password compare so a valid student credential on
// the admin channel is reported as a role mismatch, not bad credentials.
func (svc *Service) Login(ctx context.Context, email, password, expectedRole string) (User, TokenPair, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, TokenPair{}, ErrInvalidCredentials
		}
		return User{}, TokenPair{}, err
	}
	if !roleMatches(usr.Role, expectedRole) {
		return User{}, TokenPair{}, ErrRoleMismatch
	}
	if err = usr.CheckPassword(password); err != nil {
		return User{}, TokenPair{}, ErrInvalidCredentials
	}
	if !usr.Verified {
		return User{}, TokenPair{}, ErrNotVerified
	}

	pair, err := svc.issuePair(ctx, usr)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return usr, pair, nil
}

// roleMatches is strict: each login channel accepts exactly its own role, a
// super admin authenticates on the super-admin channel only.
func roleMatches(actual, expected string) bool {
	return actual == expected
}

func (svc *Service) issuePair(ctx context.Context, usr User) (TokenPair, error) {
	pair, err := NewTokenPair(svc.conf, usr)
	if err != nil {
		return TokenPair{}, err
	}
	tok := token.Token{
		UserID:    usr.ID,
		Secret:    pair.Refresh,
		Purpose:   token.PurposeRefreshAccess,
		CreatedAt: time.Now().UTC(),
	}
	if err = svc.tokens.SaveToken(ctx, tok); err != nil {
		return TokenPair{}, errors.Wrap(err, "recording refresh token")
	}
	return pair, nil
}

// RefreshToken rotates a refresh token: the presented token must both carry a
// valid signature and still be the recorded token for its user. Rotation is
// compare-and-swap so a concurrent replay of the same token fails.
func (svc *Service) RefreshToken(ctx context.Context, refresh string) (TokenPair, error) {
	claims, err := VerifyRefreshToken(svc.conf, refresh)
	if err != nil {
		return TokenPair{}, err
	}
	// a user deleted since issuance surfaces as NotFound, not a token error
	usr, err := svc.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := NewTokenPair(svc.conf, usr)
	if err != nil {
		return TokenPair{}, err
	}
	next := token.Token{
		UserID:    usr.ID,
		Secret:    pair.Refresh,
		Purpose:   token.PurposeRefreshAccess,
		CreatedAt: time.Now().UTC(),
	}
	if err = svc.tokens.ReplaceToken(ctx, usr.ID, token.PurposeRefreshAccess, refresh, next); err != nil {
		if errors.Cause(err) == token.ErrNotFound {
			return TokenPair{}, ErrRefreshRevoked
		}
		return TokenPair{}, errors.Wrap(err, "rotating refresh token")
	}
	return pair, nil
}

// Logout revokes the user's refresh token. Logging out twice is not an error.
func (svc *Service) Logout(ctx context.Context, userID string) error {
	err := svc.tokens.DeleteUserTokens(ctx, userID, token.PurposeRefreshAccess)
	if err != nil && errors.Cause(err) != token.ErrNotFound {
		return errors.Wrap(err, "revoking refresh token")
	}
	return nil
}

func (svc *Service) ChangePassword(ctx context.Context, userID string, cp ChangePassword) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err = usr.CheckPassword(cp.OldPassword); err != nil {
		return ErrInvalidCredentials
	}
	if err = usr.SetPassword(cp.NewPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, &usr)
}

// RequestPasswordReset issues a reset token and mails it. Whether the email
// exists is never revealed to the caller, the handler responds identically
// either way.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true))
	if err != nil {
		return err
	}

	tok, err := token.New(usr.ID, token.PurposePasswordReset)
	if err != nil {
		return errors.Wrap(err, "minting reset token")
	}
	if err = svc.tokens.SaveToken(ctx, tok); err != nil {
		return errors.Wrap(err, "saving reset token")
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      fmt.Sprintf("Reset your %s password", svc.conf.AppName),
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"FullName": usr.FullName,
			"Token":    tok.Secret,
		},
	})
	return nil
}

// VerifyResetToken checks a reset token without consuming it.
func (svc *Service) VerifyResetToken(ctx context.Context, secret string) (string, error) {
	tok, err := svc.tokens.GetTokenBySecret(ctx, token.PurposePasswordReset, secret)
	if err != nil {
		return "", ErrInvalidToken
	}
	if tok.Expired(token.TTL(svc.conf, tok.Purpose), time.Now()) {
		return "", ErrInvalidToken
	}
	return tok.UserID, nil
}

// ResetPassword consumes a reset token and re-keys the account.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	if err := rp.Validate(); err != nil {
		return err
	}
	userID, err := svc.VerifyResetToken(ctx, rp.Token)
	if err != nil {
		return err
	}
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(rp.NewPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateUser(ctx, &usr); err != nil {
		return err
	}
	if err = svc.tokens.DeleteTokenBySecret(ctx, token.PurposePasswordReset, rp.Token); err != nil {
		svc.log.Error("deleting consumed reset token", err)
	}
	// A password change invalidates any live session.
	return svc.Logout(ctx, usr.ID)
}

// Update applies profile edits. Department and level changes by students are
// parked in PendingUpdate until an admin approves them; admins apply directly.
func (svc *Service) Update(ctx context.Context, actor User, targetID string, uu UpdateUser) (User, error) {
	if err := uu.Validate(); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return User{}, err
	}

	if uu.FullName != "" {
		usr.FullName = uu.FullName
	}
	if len(uu.Department) > 0 || len(uu.Level) > 0 {
		if actor.IsAdmin() {
			if len(uu.Department) > 0 {
				usr.Department = uu.Department
			}
			if len(uu.Level) > 0 {
				usr.Level = uu.Level
			}
			usr.PendingUpdate = nil
		} else {
			usr.PendingUpdate = &PendingUpdate{Department: uu.Department, Level: uu.Level}
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateUser(ctx, &usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// ApprovePendingUpdate applies a user's parked department/level edits.
func (svc *Service) ApprovePendingUpdate(ctx context.Context, targetID string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if pu := usr.PendingUpdate; pu != nil {
		if len(pu.Department) > 0 {
			usr.Department = pu.Department
		}
		if len(pu.Level) > 0 {
			usr.Level = pu.Level
		}
		usr.PendingUpdate = nil
		usr.UpdatedAt = time.Now().UTC()
		if err = svc.repo.UpdateUser(ctx, &usr); err != nil {
			return User{}, err
		}
	}
	return usr, nil
}

func (svc *Service) SetAvatar(ctx context.Context, userID, url string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	usr.Avatar = url
	usr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateUser(ctx, &usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// PromoteAdmin elevates a student to admin.
func (svc *Service) PromoteAdmin(ctx context.Context, targetID string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if usr.IsAdmin() {
		return User{}, ErrAlreadyAdmin
	}
	usr.Role = RoleAdmin
	usr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateUser(ctx, &usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// RevokeAdmin demotes an admin back to student. Super admins cannot be demoted.
func (svc *Service) RevokeAdmin(ctx context.Context, targetID string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if usr.Role != RoleAdmin {
		return User{}, ErrNotAdmin
	}
	usr.Role = RoleStudent
	usr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateUser(ctx, &usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true))
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

// Delete removes the account and revokes all of its tokens.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	for _, purpose := range []token.Purpose{token.PurposeEmailVerification, token.PurposePasswordReset, token.PurposeRefreshAccess} {
		if err := svc.tokens.DeleteUserTokens(context.Background(), id, purpose); err != nil && errors.Cause(err) != token.ErrNotFound {
			svc.log.Error("revoking tokens for deleted user", err)
		}
	}
	return nil
}
