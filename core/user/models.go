package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazard-Tom2004/TESA-API/core"
)

// Roles
const (
	RoleStudent    = "student"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

var (
	AdminRoles = []string{RoleAdmin, RoleSuperAdmin}
	AllRoles   = []string{RoleStudent, RoleAdmin, RoleSuperAdmin}
)

type User struct {
	ID            string         `json:"id"`
	FullName      string         `json:"fullName"`
	Email         string         `json:"email"`
	Avatar        string         `json:"avatar,omitempty"`
	Department    []string       `json:"department"`
	Level         []string       `json:"level"`
	Role          string         `json:"role"`
	Verified      bool           `json:"verified"`
	PendingUpdate *PendingUpdate `json:"pendingUpdates,omitempty"`
	PasswordHash  []byte         `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"` // UTC
	UpdatedAt     time.Time      `json:"updatedAt"` // UTC
}

// PendingUpdate holds unprivileged self-edits awaiting admin approval.
type PendingUpdate struct {
	Department []string `json:"department,omitempty"`
	Level      []string `json:"level,omitempty"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsStudent() bool    { return u.Role == RoleStudent }
func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

// IsAdmin reports whether the user holds any admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// PublicUser is the registration response summary: no hash, no tokens.
type PublicUser struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{FullName: u.FullName, Email: u.Email}
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	FullName   string   `json:"fullName" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Department []string `json:"department" validate:"required,alldepartments"`
	Level      []string `json:"level" validate:"required,alllevels"`
	Password   string   `json:"password" validate:"required,min=8"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Department = core.CleanStrings(nu.Department)
	nu.Level = core.CleanStrings(nu.Level)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Department and level changes by non-admins land in PendingUpdate instead.
type UpdateUser struct {
	FullName   string   `json:"fullName"`
	Department []string `json:"department" validate:"omitempty,alldepartments"`
	Level      []string `json:"level" validate:"omitempty,alllevels"`
}

func (uu *UpdateUser) Validate() error {
	uu.FullName = core.CleanString(uu.FullName)
	uu.Department = core.CleanStrings(uu.Department)
	uu.Level = core.CleanStrings(uu.Level)
	return core.Validate.Struct(uu)
}

// ChangePassword re-keys an authenticated user's credential.
type ChangePassword struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=8"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

func (cp ChangePassword) Validate() error { return core.Validate.Struct(cp) }

// ResetUserPassword consumes a password-reset token.
type ResetUserPassword struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }
