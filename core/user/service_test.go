package user_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/token"
	"github.com/hazard-Tom2004/TESA-API/core/user"
	emailsvc "github.com/hazard-Tom2004/TESA-API/services/email"
	inmemdb "github.com/hazard-Tom2004/TESA-API/storage/database/inmem"
	gocacheledger "github.com/hazard-Tom2004/TESA-API/storage/ledger/gocache"
	testutil "github.com/hazard-Tom2004/TESA-API/tests"
)

var conf *core.Config

func TestMain(m *testing.M) {
	conf = testutil.NewConfig()
	core.InitValidators()
	academic.InitValidators()
	os.Exit(m.Run())
}

func newTestService(t *testing.T) (*user.Service, user.Repository, token.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewUserRepository(db)
	tokens := gocacheledger.NewTokenRepository(conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return user.NewService(conf, repo, tokens, mailSvc, testutil.NewLogger()), repo, tokens
}

func newUserDTO(email string) user.NewUser {
	return user.NewUser{
		FullName:   "Jane Doe",
		Email:      email,
		Department: []string{academic.Departments[0]},
		Level:      []string{"200"},
		Password:   "Sekr3tword",
	}
}

func Test_Service_Register(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newTestService(t)

	usr, err := svc.Register(ctx, newUserDTO("jane@tesa.edu"))
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}
	if usr.ID == "" {
		t.Error("ID not assigned")
	}
	if usr.Role != user.RoleStudent {
		t.Errorf("Role = %q; want %q", usr.Role, user.RoleStudent)
	}
	if usr.Verified {
		t.Error("new accounts must start unverified")
	}
	if err = usr.CheckPassword("Sekr3tword"); err != nil {
		t.Errorf("CheckPassword(): %v", err)
	}
	if err = usr.CheckPassword("wrong"); err == nil {
		t.Error("CheckPassword() accepted a wrong password")
	}

	// a verification token was issued
	if _, err = tokens.GetUserToken(ctx, usr.ID, token.PurposeEmailVerification); err != nil {
		t.Errorf("GetUserToken(verification): %v", err)
	}

	// a taken email is rejected
	if _, err = svc.Register(ctx, newUserDTO("jane@tesa.edu")); err != user.ErrEmailExists {
		t.Errorf("Register(duplicate) err = %v; want ErrEmailExists", err)
	}

	// email matching is case and space insensitive
	if _, err = svc.Register(ctx, newUserDTO("  JANE@tesa.edu ")); err != user.ErrEmailExists {
		t.Errorf("Register(folded duplicate) err = %v; want ErrEmailExists", err)
	}
}

func Test_Service_Register_validation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*user.NewUser)
	}{
		{"missing name", func(nu *user.NewUser) { nu.FullName = "" }},
		{"bad email", func(nu *user.NewUser) { nu.Email = "not-an-email" }},
		{"unknown department", func(nu *user.NewUser) { nu.Department = []string{"Astrology"} }},
		{"unknown level", func(nu *user.NewUser) { nu.Level = []string{"900"} }},
		{"short password", func(nu *user.NewUser) { nu.Password = "short" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := newUserDTO("valid@tesa.edu")
			tt.mutate(&nu)
			if _, err := svc.Register(ctx, nu); err == nil {
				t.Error("Register() accepted invalid input")
			}
		})
	}
}

func Test_Service_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newTestService(t)

	usr, err := svc.Register(ctx, newUserDTO("jane@tesa.edu"))
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}
	tok, err := tokens.GetUserToken(ctx, usr.ID, token.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("GetUserToken(): %v", err)
	}

	verified, err := svc.VerifyEmail(ctx, tok.Secret)
	if err != nil {
		t.Fatalf("VerifyEmail(): %v", err)
	}
	if !verified.Verified {
		t.Error("account not marked verified")
	}

	// the token is single use
	if _, err = svc.VerifyEmail(ctx, tok.Secret); err != user.ErrInvalidToken {
		t.Errorf("VerifyEmail(reuse) err = %v; want ErrInvalidToken", err)
	}
	if _, err = svc.VerifyEmail(ctx, "bogus"); err != user.ErrInvalidToken {
		t.Errorf("VerifyEmail(bogus) err = %v; want ErrInvalidToken", err)
	}
}

func Test_Service_ResendVerification(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newTestService(t)

	usr, err := svc.Register(ctx, newUserDTO("jane@tesa.edu"))
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}
	old, err := tokens.GetUserToken(ctx, usr.ID, token.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("GetUserToken(): %v", err)
	}

	if err = svc.ResendVerification(ctx, usr.Email); err != nil {
		t.Fatalf("ResendVerification(): %v", err)
	}

	// the previous token no longer verifies
	if _, err = svc.VerifyEmail(ctx, old.Secret); err != user.ErrInvalidToken {
		t.Errorf("VerifyEmail(stale) err = %v; want ErrInvalidToken", err)
	}
	fresh, err := tokens.GetUserToken(ctx, usr.ID, token.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("GetUserToken(): %v", err)
	}
	if _, err = svc.VerifyEmail(ctx, fresh.Secret); err != nil {
		t.Errorf("VerifyEmail(fresh): %v", err)
	}

	// an already verified account gets no new token
	if err = svc.ResendVerification(ctx, usr.Email); err != user.ErrAlreadyVerified {
		t.Errorf("ResendVerification(verified) err = %v; want ErrAlreadyVerified", err)
	}
}

func Test_Service_Login(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	student := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)
	admin := testutil.CreateUser(t, repo, "Admin", "admin@tesa.edu", "Sekr3tword", user.RoleAdmin, true)
	superAdmin := testutil.CreateUser(t, repo, "Root", "root@tesa.edu", "Sekr3tword", user.RoleSuperAdmin, true)
	testutil.CreateUser(t, repo, "Ghost", "ghost@tesa.edu", "Sekr3tword", user.RoleStudent, false)

	tests := []struct {
		name         string
		email, pwd   string
		expectedRole string
		wantErr      error
	}{
		{"student ok", student.Email, "Sekr3tword", user.RoleStudent, nil},
		{"admin ok", admin.Email, "Sekr3tword", user.RoleAdmin, nil},
		{"super admin on own channel", superAdmin.Email, "Sekr3tword", user.RoleSuperAdmin, nil},
		{"super admin on admin channel", superAdmin.Email, "Sekr3tword", user.RoleAdmin, user.ErrRoleMismatch},
		{"folded email", "  STUD@tesa.edu ", "Sekr3tword", user.RoleStudent, nil},
		{"unknown email", "nobody@tesa.edu", "Sekr3tword", user.RoleStudent, user.ErrInvalidCredentials},
		{"wrong password", student.Email, "nope-nope", user.RoleStudent, user.ErrInvalidCredentials},
		{"student on admin channel", student.Email, "Sekr3tword", user.RoleAdmin, user.ErrRoleMismatch},
		{"admin on student channel", admin.Email, "Sekr3tword", user.RoleStudent, user.ErrRoleMismatch},
		{"admin on super admin channel", admin.Email, "Sekr3tword", user.RoleSuperAdmin, user.ErrRoleMismatch},
		// role mismatch wins over a wrong password
		{"wrong channel and password", student.Email, "nope-nope", user.RoleAdmin, user.ErrRoleMismatch},
		{"unverified", "ghost@tesa.edu", "Sekr3tword", user.RoleStudent, user.ErrNotVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, pair, err := svc.Login(ctx, tt.email, tt.pwd, tt.expectedRole)
			if err != tt.wantErr {
				t.Fatalf("Login() err = %v; want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if usr.Email == "" {
				t.Error("Login() returned empty user")
			}
			if pair.Access == "" || pair.Refresh == "" {
				t.Error("Login() returned incomplete token pair")
			}
		})
	}
}

func Test_Service_RefreshToken_rotation(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	usr := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)
	_, pair, err := svc.Login(ctx, usr.Email, "Sekr3tword", user.RoleStudent)
	if err != nil {
		t.Fatalf("Login(): %v", err)
	}

	next, err := svc.RefreshToken(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("RefreshToken(): %v", err)
	}
	if next.Refresh == pair.Refresh {
		t.Error("rotation must mint a new refresh token")
	}

	// replaying the consumed token is a revocation
	if _, err = svc.RefreshToken(ctx, pair.Refresh); err != user.ErrRefreshRevoked {
		t.Errorf("RefreshToken(replay) err = %v; want ErrRefreshRevoked", err)
	}

	// the rotated token still works
	if _, err = svc.RefreshToken(ctx, next.Refresh); err != nil {
		t.Errorf("RefreshToken(rotated): %v", err)
	}

	// garbage is rejected outright
	if _, err = svc.RefreshToken(ctx, "not-a-jwt"); err != user.ErrInvalidRefresh {
		t.Errorf("RefreshToken(garbage) err = %v; want ErrInvalidRefresh", err)
	}

	// an access token does not pass as a refresh token
	_, pair2, err := svc.Login(ctx, usr.Email, "Sekr3tword", user.RoleStudent)
	if err != nil {
		t.Fatalf("Login(): %v", err)
	}
	if _, err = svc.RefreshToken(ctx, pair2.Access); err != user.ErrInvalidRefresh {
		t.Errorf("RefreshToken(access token) err = %v; want ErrInvalidRefresh", err)
	}

	// a user deleted since issuance is a NotFound, not a token failure
	if err = svc.Delete(ctx, usr.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err = svc.RefreshToken(ctx, pair2.Refresh); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("RefreshToken(deleted user) err = %v; want ErrNotFound", err)
	}
}

func Test_Service_Logout(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	usr := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)
	_, pair, err := svc.Login(ctx, usr.Email, "Sekr3tword", user.RoleStudent)
	if err != nil {
		t.Fatalf("Login(): %v", err)
	}

	if err = svc.Logout(ctx, usr.ID); err != nil {
		t.Fatalf("Logout(): %v", err)
	}
	if _, err = svc.RefreshToken(ctx, pair.Refresh); err != user.ErrRefreshRevoked {
		t.Errorf("RefreshToken(after logout) err = %v; want ErrRefreshRevoked", err)
	}

	// logging out twice is fine
	if err = svc.Logout(ctx, usr.ID); err != nil {
		t.Errorf("Logout(again) err = %v; want nil", err)
	}
}

func Test_Service_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	usr := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)

	cp := user.ChangePassword{OldPassword: "wrong", NewPassword: "NewSekr3t", ConfirmNewPassword: "NewSekr3t"}
	if err := svc.ChangePassword(ctx, usr.ID, cp); err != user.ErrInvalidCredentials {
		t.Errorf("ChangePassword(wrong old) err = %v; want ErrInvalidCredentials", err)
	}

	cp.OldPassword = "Sekr3tword"
	cp.ConfirmNewPassword = "Mismatch1"
	if err := svc.ChangePassword(ctx, usr.ID, cp); err == nil {
		t.Error("ChangePassword() accepted mismatched confirmation")
	}

	cp.ConfirmNewPassword = "NewSekr3t"
	if err := svc.ChangePassword(ctx, usr.ID, cp); err != nil {
		t.Fatalf("ChangePassword(): %v", err)
	}
	if _, _, err := svc.Login(ctx, usr.Email, "NewSekr3t", user.RoleStudent); err != nil {
		t.Errorf("Login(new password): %v", err)
	}
	if _, _, err := svc.Login(ctx, usr.Email, "Sekr3tword", user.RoleStudent); err != user.ErrInvalidCredentials {
		t.Errorf("Login(old password) err = %v; want ErrInvalidCredentials", err)
	}
}

func Test_Service_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens := newTestService(t)

	usr := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)
	_, pair, err := svc.Login(ctx, usr.Email, "Sekr3tword", user.RoleStudent)
	if err != nil {
		t.Fatalf("Login(): %v", err)
	}

	if err = svc.RequestPasswordReset(ctx, usr.Email); err != nil {
		t.Fatalf("RequestPasswordReset(): %v", err)
	}
	if err = svc.RequestPasswordReset(ctx, "nobody@tesa.edu"); err != user.ErrNotFound {
		t.Errorf("RequestPasswordReset(unknown) err = %v; want ErrNotFound", err)
	}

	tok, err := tokens.GetUserToken(ctx, usr.ID, token.PurposePasswordReset)
	if err != nil {
		t.Fatalf("GetUserToken(): %v", err)
	}

	if id, err := svc.VerifyResetToken(ctx, tok.Secret); err != nil || id != usr.ID {
		t.Errorf("VerifyResetToken() = (%q, %v); want (%q, nil)", id, err, usr.ID)
	}
	if _, err = svc.VerifyResetToken(ctx, "bogus"); err != user.ErrInvalidToken {
		t.Errorf("VerifyResetToken(bogus) err = %v; want ErrInvalidToken", err)
	}

	if err = svc.ResetPassword(ctx, user.ResetUserPassword{Token: tok.Secret, NewPassword: "NewSekr3t"}); err != nil {
		t.Fatalf("ResetPassword(): %v", err)
	}
	if _, _, err = svc.Login(ctx, usr.Email, "NewSekr3t", user.RoleStudent); err != nil {
		t.Errorf("Login(new password): %v", err)
	}

	// the token is consumed and live sessions are revoked
	if err = svc.ResetPassword(ctx, user.ResetUserPassword{Token: tok.Secret, NewPassword: "Another1x"}); err != user.ErrInvalidToken {
		t.Errorf("ResetPassword(reuse) err = %v; want ErrInvalidToken", err)
	}
	if _, err = svc.RefreshToken(ctx, pair.Refresh); err != user.ErrRefreshRevoked {
		t.Errorf("RefreshToken(after reset) err = %v; want ErrRefreshRevoked", err)
	}
}

func Test_Service_Update_pendingApproval(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	student := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)
	admin := testutil.CreateUser(t, repo, "Admin", "admin@tesa.edu", "Sekr3tword", user.RoleAdmin, true)

	newDept := []string{academic.Departments[3]}
	newLevel := []string{"400"}

	// a student's department/level edits are parked
	got, err := svc.Update(ctx, student, student.ID, user.UpdateUser{FullName: "Student Renamed", Department: newDept, Level: newLevel})
	if err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if got.FullName != "Student Renamed" {
		t.Errorf("FullName = %q; name edits apply directly", got.FullName)
	}
	if got.Department[0] == newDept[0] {
		t.Error("department must not change before approval")
	}
	if got.PendingUpdate == nil {
		t.Fatal("PendingUpdate not recorded")
	}
	if got.PendingUpdate.Department[0] != newDept[0] || got.PendingUpdate.Level[0] != newLevel[0] {
		t.Errorf("PendingUpdate = %+v", got.PendingUpdate)
	}

	// admin approval applies and clears the parked edits
	got, err = svc.ApprovePendingUpdate(ctx, student.ID)
	if err != nil {
		t.Fatalf("ApprovePendingUpdate(): %v", err)
	}
	if got.Department[0] != newDept[0] || got.Level[0] != newLevel[0] {
		t.Errorf("approved update not applied: %+v", got)
	}
	if got.PendingUpdate != nil {
		t.Error("PendingUpdate not cleared")
	}

	// approving with nothing parked is a no-op
	if _, err = svc.ApprovePendingUpdate(ctx, student.ID); err != nil {
		t.Errorf("ApprovePendingUpdate(no-op): %v", err)
	}

	// an admin acting on a user applies directly
	got, err = svc.Update(ctx, admin, student.ID, user.UpdateUser{Department: []string{academic.Departments[5]}})
	if err != nil {
		t.Fatalf("Update(as admin): %v", err)
	}
	if got.Department[0] != academic.Departments[5] {
		t.Errorf("Department = %v; admin edits apply directly", got.Department)
	}
	if got.PendingUpdate != nil {
		t.Error("admin edits must not park a pending update")
	}
}

func Test_Service_PromoteRevokeAdmin(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	student := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)
	superAdmin := testutil.CreateUser(t, repo, "Root", "root@tesa.edu", "Sekr3tword", user.RoleSuperAdmin, true)

	got, err := svc.PromoteAdmin(ctx, student.ID)
	if err != nil {
		t.Fatalf("PromoteAdmin(): %v", err)
	}
	if got.Role != user.RoleAdmin {
		t.Errorf("Role = %q; want %q", got.Role, user.RoleAdmin)
	}
	if _, err = svc.PromoteAdmin(ctx, student.ID); err != user.ErrAlreadyAdmin {
		t.Errorf("PromoteAdmin(again) err = %v; want ErrAlreadyAdmin", err)
	}
	if _, err = svc.PromoteAdmin(ctx, superAdmin.ID); err != user.ErrAlreadyAdmin {
		t.Errorf("PromoteAdmin(super admin) err = %v; want ErrAlreadyAdmin", err)
	}

	got, err = svc.RevokeAdmin(ctx, student.ID)
	if err != nil {
		t.Fatalf("RevokeAdmin(): %v", err)
	}
	if got.Role != user.RoleStudent {
		t.Errorf("Role = %q; want %q", got.Role, user.RoleStudent)
	}
	if _, err = svc.RevokeAdmin(ctx, student.ID); err != user.ErrNotAdmin {
		t.Errorf("RevokeAdmin(student) err = %v; want ErrNotAdmin", err)
	}
	// super admins cannot be demoted
	if _, err = svc.RevokeAdmin(ctx, superAdmin.ID); err != user.ErrNotAdmin {
		t.Errorf("RevokeAdmin(super admin) err = %v; want ErrNotAdmin", err)
	}
}

func Test_Service_Delete_revokesSessions(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens := newTestService(t)

	usr := testutil.CreateUser(t, repo, "Student", "stud@tesa.edu", "Sekr3tword", user.RoleStudent, true)
	if _, _, err := svc.Login(ctx, usr.Email, "Sekr3tword", user.RoleStudent); err != nil {
		t.Fatalf("Login(): %v", err)
	}

	if err := svc.Delete(ctx, usr.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err := svc.GetByID(ctx, usr.ID); err != user.ErrNotFound {
		t.Errorf("GetByID(deleted) err = %v; want ErrNotFound", err)
	}
	if _, err := tokens.GetUserToken(ctx, usr.ID, token.PurposeRefreshAccess); err != token.ErrNotFound {
		t.Errorf("GetUserToken(deleted) err = %v; want ErrNotFound", err)
	}
}

func TestGetUserClaims(t *testing.T) {
	usr := user.User{ID: "usr1", Email: "jane@tesa.edu", Role: user.RoleAdmin}
	claims := user.GetUserClaims(conf, usr, time.Hour)

	if claims.Subject != usr.ID {
		t.Errorf("Subject = %q; want %q", claims.Subject, usr.ID)
	}
	if claims.Email != usr.Email || claims.Role != usr.Role {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ExpiresAt <= time.Now().Unix() {
		t.Error("claims already expired")
	}
}
