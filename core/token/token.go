package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/hazard-Tom2004/TESA-API/core"
)

// Purposes. At most one live token per (user, purpose) is authoritative:
// saving a new one replaces any prior token of the same purpose.
const (
	PurposeEmailVerification Purpose = "emailVerification"
	PurposePasswordReset     Purpose = "passwordReset"
	PurposeRefreshAccess     Purpose = "refreshAccess"
)

var (
	// errors
	ErrNotFound = errors.New("token not found")
)

type (
	Purpose string

	// Token is a ledger entry: a single-purpose opaque secret bound to a user.
	Token struct {
		UserID    string
		Secret    string
		Purpose   Purpose
		CreatedAt time.Time // UTC
	}

	// Repository is the durable ledger of outstanding tokens.
	// Implementations must expire entries per TTL, either natively or lazily on read.
	Repository interface {
		// SaveToken upserts tok, replacing any existing token for (tok.UserID, tok.Purpose).
		SaveToken(ctx context.Context, tok Token) error
		GetTokenBySecret(ctx context.Context, purpose Purpose, secret string) (Token, error)
		GetUserToken(ctx context.Context, userID string, purpose Purpose) (Token, error)
		// ReplaceToken atomically swaps the token for (userID, purpose) with tok,
		// but only if the currently stored secret equals oldSecret; otherwise it
		// fails with ErrNotFound. Concurrent rotations of the same token must not
		// both succeed.
		ReplaceToken(ctx context.Context, userID string, purpose Purpose, oldSecret string, tok Token) error
		DeleteTokenBySecret(ctx context.Context, purpose Purpose, secret string) error
		DeleteUserTokens(ctx context.Context, userID string, purpose Purpose) error
	}
)

// TTL returns the configured lifetime for a token purpose.
func TTL(conf *core.Config, p Purpose) time.Duration {
	switch p {
	case PurposeEmailVerification:
		return conf.EmailVerificationTimeoutDelta
	case PurposePasswordReset:
		return conf.PasswordResetTimeoutDelta
	case PurposeRefreshAccess:
		return conf.RefreshExpirationDelta
	}
	return 0
}

// New mints a ledger entry with a fresh high-entropy secret.
func New(userID string, purpose Purpose) (Token, error) {
	secret, err := NewSecret()
	if err != nil {
		return Token{}, err
	}
	return Token{
		UserID:    userID,
		Secret:    secret,
		Purpose:   purpose,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewSecret returns 32 random bytes, base64url encoded.
func NewSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Expired reports whether tok has outlived ttl at the given instant.
func (t Token) Expired(ttl time.Duration, now time.Time) bool {
	return now.After(t.CreatedAt.Add(ttl))
}
