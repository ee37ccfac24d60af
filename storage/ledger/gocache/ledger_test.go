package gocacheledger

import (
	"context"
	"testing"
	"time"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/token"
)

func newTestLedger() token.Repository {
	conf := &core.Config{
		EmailVerificationTimeoutDelta: time.Hour,
		PasswordResetTimeoutDelta:     time.Hour,
		RefreshExpirationDelta:        time.Hour,
	}
	return NewTokenRepository(conf)
}

func mustToken(t *testing.T, userID string, purpose token.Purpose) token.Token {
	t.Helper()
	tok, err := token.New(userID, purpose)
	if err != nil {
		t.Fatalf("token.New(): %v", err)
	}
	return tok
}

func Test_ledger_SaveToken_replacesPrior(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()

	old := mustToken(t, "usr1", token.PurposePasswordReset)
	if err := ledger.SaveToken(ctx, old); err != nil {
		t.Fatalf("SaveToken(): %v", err)
	}
	fresh := mustToken(t, "usr1", token.PurposePasswordReset)
	if err := ledger.SaveToken(ctx, fresh); err != nil {
		t.Fatalf("SaveToken(): %v", err)
	}

	// the prior secret is dead
	if _, err := ledger.GetTokenBySecret(ctx, token.PurposePasswordReset, old.Secret); err != token.ErrNotFound {
		t.Errorf("GetTokenBySecret(old) err = %v; want ErrNotFound", err)
	}
	got, err := ledger.GetUserToken(ctx, "usr1", token.PurposePasswordReset)
	if err != nil {
		t.Fatalf("GetUserToken(): %v", err)
	}
	if got.Secret != fresh.Secret {
		t.Errorf("GetUserToken() secret = %q; want %q", got.Secret, fresh.Secret)
	}
}

func Test_ledger_SaveToken_purposesAreIndependent(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()

	verif := mustToken(t, "usr1", token.PurposeEmailVerification)
	reset := mustToken(t, "usr1", token.PurposePasswordReset)
	if err := ledger.SaveToken(ctx, verif); err != nil {
		t.Fatalf("SaveToken(): %v", err)
	}
	if err := ledger.SaveToken(ctx, reset); err != nil {
		t.Fatalf("SaveToken(): %v", err)
	}

	if _, err := ledger.GetTokenBySecret(ctx, token.PurposeEmailVerification, verif.Secret); err != nil {
		t.Errorf("GetTokenBySecret(verification) err = %v", err)
	}
	// a secret is only valid for its own purpose
	if _, err := ledger.GetTokenBySecret(ctx, token.PurposePasswordReset, verif.Secret); err != token.ErrNotFound {
		t.Errorf("GetTokenBySecret(cross purpose) err = %v; want ErrNotFound", err)
	}
}

func Test_ledger_ReplaceToken(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()

	old := mustToken(t, "usr1", token.PurposeRefreshAccess)
	if err := ledger.SaveToken(ctx, old); err != nil {
		t.Fatalf("SaveToken(): %v", err)
	}

	next := mustToken(t, "usr1", token.PurposeRefreshAccess)
	if err := ledger.ReplaceToken(ctx, "usr1", token.PurposeRefreshAccess, old.Secret, next); err != nil {
		t.Fatalf("ReplaceToken(): %v", err)
	}

	// a second rotation presenting the already-consumed secret loses the race
	stale := mustToken(t, "usr1", token.PurposeRefreshAccess)
	if err := ledger.ReplaceToken(ctx, "usr1", token.PurposeRefreshAccess, old.Secret, stale); err != token.ErrNotFound {
		t.Errorf("ReplaceToken(stale) err = %v; want ErrNotFound", err)
	}

	got, err := ledger.GetUserToken(ctx, "usr1", token.PurposeRefreshAccess)
	if err != nil {
		t.Fatalf("GetUserToken(): %v", err)
	}
	if got.Secret != next.Secret {
		t.Errorf("GetUserToken() secret = %q; want %q", got.Secret, next.Secret)
	}
}

func Test_ledger_DeleteUserTokens(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()

	tok := mustToken(t, "usr1", token.PurposeRefreshAccess)
	if err := ledger.SaveToken(ctx, tok); err != nil {
		t.Fatalf("SaveToken(): %v", err)
	}
	if err := ledger.DeleteUserTokens(ctx, "usr1", token.PurposeRefreshAccess); err != nil {
		t.Fatalf("DeleteUserTokens(): %v", err)
	}
	if _, err := ledger.GetUserToken(ctx, "usr1", token.PurposeRefreshAccess); err != token.ErrNotFound {
		t.Errorf("GetUserToken() err = %v; want ErrNotFound", err)
	}
	if _, err := ledger.GetTokenBySecret(ctx, token.PurposeRefreshAccess, tok.Secret); err != token.ErrNotFound {
		t.Errorf("GetTokenBySecret() err = %v; want ErrNotFound", err)
	}

	// deleting again is a no-op
	if err := ledger.DeleteUserTokens(ctx, "usr1", token.PurposeRefreshAccess); err != nil {
		t.Errorf("DeleteUserTokens(again) err = %v; want nil", err)
	}
}
