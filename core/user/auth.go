package user

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
)

// Claims carries the identity baked into access and refresh tokens.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenPair is returned on login and on every refresh rotation.
type TokenPair struct {
	Access  string `json:"token"`
	Refresh string `json:"refresh_token"`
}

// GetUserClaims builds claims for usr expiring after delta.
func GetUserClaims(conf *core.Config, usr User, delta time.Duration) Claims {
	now := time.Now()
	return Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   usr.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(delta).Unix(),
		},
		Email: usr.Email,
		Role:  usr.Role,
	}
}

// GenerateToken signs claims with key using HS256.
func GenerateToken(claims Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	return signed, errors.Wrap(err, "signing token")
}

// NewTokenPair issues a fresh access/refresh pair for usr. The access token is
// signed with the primary secret, the refresh token with a distinct secret so
// one can never be presented in place of the other.
func NewTokenPair(conf *core.Config, usr User) (TokenPair, error) {
	access, err := GenerateToken(GetUserClaims(conf, usr, conf.JWTExpirationDelta), conf.SecretKey)
	if err != nil {
		return TokenPair{}, err
	}
	// claim timestamps have second resolution; the jti keeps every rotation distinct
	refreshClaims := GetUserClaims(conf, usr, conf.RefreshExpirationDelta)
	refreshClaims.Id = uuid.New().String()
	refresh, err := GenerateToken(refreshClaims, conf.RefreshSecretKey)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyRefreshToken checks the signature and expiry of a refresh token and
// returns its claims. Tokens signed with the access secret fail here.
func VerifyRefreshToken(conf *core.Config, tokenStr string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return conf.RefreshSecretKey, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidRefresh
	}
	return claims, nil
}
