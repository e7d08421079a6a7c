// Package tokenfake mints signed credentials for tests
package tokenfake

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultSecret = "tokenfake-secret"

type Minter struct {
	method  jwt.SigningMethod
	key     any
	nowFunc func() time.Time
}

type MinterOption func(*Minter)

func WithNowFunc(now func() time.Time) MinterOption {
	return func(m *Minter) {
		m.nowFunc = now
	}
}

// WithSigningKey signs with method and a private key (or HMAC secret) instead of DefaultSecret
func WithSigningKey(method jwt.SigningMethod, key any) MinterOption {
	return func(m *Minter) {
		m.method = method
		m.key = key
	}
}

func New(options ...MinterOption) *Minter {
	m := &Minter{
		method: jwt.SigningMethodHS256,
		key:    []byte(DefaultSecret),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Access mints an access credential that expires after lifetime
func (m *Minter) Access(uid string, lifetime time.Duration) string {
	return m.ExpiringAt(uid, "access", m.nowFunc().Add(lifetime))
}

// Refresh mints a refresh credential that expires after lifetime
func (m *Minter) Refresh(uid string, lifetime time.Duration) string {
	return m.ExpiringAt(uid, "refresh", m.nowFunc().Add(lifetime))
}

func (m *Minter) ExpiringAt(uid, tokenType string, exp time.Time) string {
	return m.Sign(jwt.MapClaims{
		"sub":        uid,
		"user_uid":   uid,
		"token_type": tokenType,
		"iat":        m.nowFunc().Unix(),
		"exp":        exp.Unix(),
		"jti":        uuid.New().String(),
	})
}

// WithoutExpiry mints a well formed credential with no exp claim
func (m *Minter) WithoutExpiry(uid string) string {
	return m.Sign(jwt.MapClaims{
		"sub": uid,
		"iat": m.nowFunc().Unix(),
	})
}

// Sign panics on failure, which only happens with a key that does not match the method
func (m *Minter) Sign(claims jwt.MapClaims) string {
	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.key)
	if err != nil {
		panic("tokenfake: failed to sign token: " + err.Error())
	}
	return signed
}
