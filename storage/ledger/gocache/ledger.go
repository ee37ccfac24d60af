// Package gocacheledger keeps the token ledger in a process-local TTL cache.
// It is suitable for single-instance deployments and tests; the redis ledger
// is the clustered alternative.
package gocacheledger

import (
	"context"
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/token"
)

type ledger struct {
	conf  *core.Config
	cache *gocache.Cache
	mu    sync.Mutex // serializes multi-key writes
}

var _ token.Repository = (*ledger)(nil) // interface compliance check

func NewTokenRepository(conf *core.Config) token.Repository {
	return &ledger{
		conf:  conf,
		cache: gocache.New(gocache.NoExpiration, conf.PasswordResetTimeoutDelta),
	}
}

// Two keys per token: a secret index for GetTokenBySecret and a user index
// for GetUserToken. Both expire together under the purpose's TTL.
func secretKey(p token.Purpose, secret string) string { return fmt.Sprintf("s:%s:%s", p, secret) }
func userKey(p token.Purpose, userID string) string   { return fmt.Sprintf("u:%s:%s", p, userID) }

func (l *ledger) save(tok token.Token) {
	ttl := token.TTL(l.conf, tok.Purpose)
	l.cache.Set(secretKey(tok.Purpose, tok.Secret), tok, ttl)
	l.cache.Set(userKey(tok.Purpose, tok.UserID), tok, ttl)
}

func (l *ledger) SaveToken(ctx context.Context, tok token.Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop the previous token of this purpose, there is at most one per user.
	if prev, found := l.cache.Get(userKey(tok.Purpose, tok.UserID)); found {
		l.cache.Delete(secretKey(tok.Purpose, prev.(token.Token).Secret))
	}
	l.save(tok)
	return nil
}

func (l *ledger) GetTokenBySecret(ctx context.Context, purpose token.Purpose, secret string) (token.Token, error) {
	if v, found := l.cache.Get(secretKey(purpose, secret)); found {
		return v.(token.Token), nil
	}
	return token.Token{}, token.ErrNotFound
}

func (l *ledger) GetUserToken(ctx context.Context, userID string, purpose token.Purpose) (token.Token, error) {
	if v, found := l.cache.Get(userKey(purpose, userID)); found {
		return v.(token.Token), nil
	}
	return token.Token{}, token.ErrNotFound
}

func (l *ledger) ReplaceToken(ctx context.Context, userID string, purpose token.Purpose, oldSecret string, tok token.Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, found := l.cache.Get(userKey(purpose, userID))
	if !found || v.(token.Token).Secret != oldSecret {
		return token.ErrNotFound
	}
	l.cache.Delete(secretKey(purpose, oldSecret))
	l.save(tok)
	return nil
}

func (l *ledger) DeleteTokenBySecret(ctx context.Context, purpose token.Purpose, secret string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, found := l.cache.Get(secretKey(purpose, secret))
	if !found {
		return token.ErrNotFound
	}
	l.cache.Delete(secretKey(purpose, secret))
	l.cache.Delete(userKey(purpose, v.(token.Token).UserID))
	return nil
}

func (l *ledger) DeleteUserTokens(ctx context.Context, userID string, purpose token.Purpose) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, found := l.cache.Get(userKey(purpose, userID)); found {
		l.cache.Delete(secretKey(purpose, v.(token.Token).Secret))
		l.cache.Delete(userKey(purpose, userID))
	}
	return nil
}
