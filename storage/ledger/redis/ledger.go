// Package redisledger keeps the token ledger in Redis so multiple API
// instances share one view of outstanding tokens. Entries expire natively
// via per-purpose TTLs.
package redisledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
	"github.com/hazard-Tom2004/TESA-API/core/token"
)

type ledger struct {
	conf   *core.Config
	client *redis.Client
}

var _ token.Repository = (*ledger)(nil) // interface compliance check

func NewTokenRepository(conf *core.Config, client *redis.Client) token.Repository {
	return &ledger{conf: conf, client: client}
}

func secretKey(p token.Purpose, secret string) string { return fmt.Sprintf("token:s:%s:%s", p, secret) }
func userKey(p token.Purpose, userID string) string   { return fmt.Sprintf("token:u:%s:%s", p, userID) }

type entry struct {
	UserID    string `json:"userId"`
	Secret    string `json:"secret"`
	Purpose   string `json:"purpose"`
	CreatedAt int64  `json:"createdAt"`
}

func encode(tok token.Token) ([]byte, error) {
	return json.Marshal(entry{
		UserID:    tok.UserID,
		Secret:    tok.Secret,
		Purpose:   string(tok.Purpose),
		CreatedAt: tok.CreatedAt.Unix(),
	})
}

func decode(data []byte) (token.Token, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return token.Token{}, errors.Wrap(err, "decoding ledger entry")
	}
	return token.Token{
		UserID:    e.UserID,
		Secret:    e.Secret,
		Purpose:   token.Purpose(e.Purpose),
		CreatedAt: time.Unix(e.CreatedAt, 0).UTC(),
	}, nil
}

func (l *ledger) saveTx(ctx context.Context, pipe redis.Pipeliner, tok token.Token) error {
	data, err := encode(tok)
	if err != nil {
		return err
	}
	ttl := token.TTL(l.conf, tok.Purpose)
	pipe.Set(ctx, secretKey(tok.Purpose, tok.Secret), data, ttl)
	pipe.Set(ctx, userKey(tok.Purpose, tok.UserID), data, ttl)
	return nil
}

func (l *ledger) SaveToken(ctx context.Context, tok token.Token) error {
	key := userKey(tok.Purpose, tok.UserID)
	// Watch the user index so a concurrent save of the same slot retries.
	err := l.client.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(prev) > 0 {
				if old, derr := decode(prev); derr == nil {
					pipe.Del(ctx, secretKey(old.Purpose, old.Secret))
				}
			}
			return l.saveTx(ctx, pipe, tok)
		})
		return err
	}, key)
	return errors.Wrap(err, "saving token")
}

func (l *ledger) GetTokenBySecret(ctx context.Context, purpose token.Purpose, secret string) (token.Token, error) {
	data, err := l.client.Get(ctx, secretKey(purpose, secret)).Bytes()
	if err == redis.Nil {
		return token.Token{}, token.ErrNotFound
	}
	if err != nil {
		return token.Token{}, errors.Wrap(err, "fetching token")
	}
	return decode(data)
}

func (l *ledger) GetUserToken(ctx context.Context, userID string, purpose token.Purpose) (token.Token, error) {
	data, err := l.client.Get(ctx, userKey(purpose, userID)).Bytes()
	if err == redis.Nil {
		return token.Token{}, token.ErrNotFound
	}
	if err != nil {
		return token.Token{}, errors.Wrap(err, "fetching token")
	}
	return decode(data)
}

// ReplaceToken is a compare-and-swap on the user's token slot: it commits only
// if the stored secret still equals oldSecret at commit time.
func (l *ledger) ReplaceToken(ctx context.Context, userID string, purpose token.Purpose, oldSecret string, tok token.Token) error {
	key := userKey(purpose, userID)
	err := l.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return token.ErrNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decode(data)
		if err != nil {
			return err
		}
		if cur.Secret != oldSecret {
			return token.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, secretKey(purpose, oldSecret))
			return l.saveTx(ctx, pipe, tok)
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		// Lost the race: someone else rotated this slot first.
		return token.ErrNotFound
	}
	return err
}

func (l *ledger) DeleteTokenBySecret(ctx context.Context, purpose token.Purpose, secret string) error {
	tok, err := l.GetTokenBySecret(ctx, purpose, secret)
	if err != nil {
		return err
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, secretKey(purpose, secret))
		pipe.Del(ctx, userKey(purpose, tok.UserID))
		return nil
	})
	return errors.Wrap(err, "deleting token")
}

func (l *ledger) DeleteUserTokens(ctx context.Context, userID string, purpose token.Purpose) error {
	tok, err := l.GetUserToken(ctx, userID, purpose)
	if err == token.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, secretKey(purpose, tok.Secret))
		pipe.Del(ctx, userKey(purpose, userID))
		return nil
	})
	return errors.Wrap(err, "deleting tokens")
}
