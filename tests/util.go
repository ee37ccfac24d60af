package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/academic"
	"github.com/hazard-Tom2004/TESA-API/core/user"
)

// NewConfig returns a Config suitable for tests: debug on, test mode on.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = true
	conf.TestMode = true
	return conf
}

// NewLogger returns a no-op core.Logger.
func NewLogger() core.Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	fullName, email, pwd, role string,
	verified bool,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		ID:         uuid.New().String(),
		FullName:   fullName,
		Email:      email,
		Department: []string{academic.Departments[0]},
		Level:      []string{academic.Levels[0]},
		Role:       role,
		Verified:   verified,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if role == "" {
		usr.Role = user.RoleStudent
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	if err := repo.CreateUser(context.Background(), &usr); err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// SetTerm marks session/semester as the current term.
func SetTerm(t *testing.T, repo academic.Repository, session, semester string) {
	t.Helper()

	now := time.Now().UTC()
	if _, err := repo.SetCurrentSession(context.Background(), academic.Session{
		ID:        uuid.New().String(),
		Session:   session,
		IsCurrent: true,
		SetBy:     "test",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("SetTerm(): %v", err)
	}
	if _, err := repo.SetCurrentSemester(context.Background(), academic.Semester{
		ID:        uuid.New().String(),
		Semester:  semester,
		IsCurrent: true,
		SetBy:     "test",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("SetTerm(): %v", err)
	}
}
