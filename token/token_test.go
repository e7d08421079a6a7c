package token_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-charger-client/token"
	"github.com/jrsteele09/go-charger-client/token/tokenfake"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func nowFunc() time.Time { return testNow }

func TestInspect(t *testing.T) {
	m := tokenfake.New(tokenfake.WithNowFunc(nowFunc))

	t.Run("decodes claims", func(t *testing.T) {
		c, err := token.Inspect(m.Access("user-1", time.Hour))
		require.NoError(t, err)
		require.Equal(t, "user-1", c.Subject)
		require.Equal(t, "user-1", c.UserUID)
		require.Equal(t, "access", c.TokenType)
		require.Equal(t, testNow.Add(time.Hour).Unix(), c.ExpiresAt.Unix())
		require.Equal(t, testNow.Unix(), c.IssuedAt.Unix())
	})

	t.Run("numeric user_id", func(t *testing.T) {
		c, err := token.Inspect(m.Sign(jwt.MapClaims{"user_id": float64(42), "aud": "api"}))
		require.NoError(t, err)
		require.Equal(t, "42", c.UserUID)
		require.Equal(t, []string{"api"}, c.Audience)
		require.False(t, c.HasExpiry())
	})

	t.Run("empty and malformed", func(t *testing.T) {
		_, err := token.Inspect("  ")
		require.ErrorIs(t, err, token.ErrEmpty)

		_, err = token.Inspect("not.a.jwt")
		require.ErrorIs(t, err, token.ErrMalformed)

		_, err = token.Inspect(m.Sign(jwt.MapClaims{"exp": "tomorrow"}))
		require.ErrorIs(t, err, token.ErrMalformed)
	})
}

func TestCheck(t *testing.T) {
	m := tokenfake.New(tokenfake.WithNowFunc(nowFunc))
	raw := m.ExpiringAt("u", "access", testNow.Add(100*time.Second))

	tests := []struct {
		name   string
		raw    string
		margin time.Duration
		want   error
	}{
		{name: "outside margin", raw: raw, margin: 60 * time.Second},
		{name: "exactly at margin", raw: raw, margin: 100 * time.Second},
		{name: "inside margin", raw: raw, margin: 101 * time.Second, want: token.ErrExpiring},
		{name: "zero margin", raw: raw, margin: 0},
		{name: "already expired", raw: m.ExpiringAt("u", "access", testNow.Add(-time.Second)), want: token.ErrExpiring},
		{name: "empty", raw: "", want: token.ErrEmpty},
		{name: "garbage", raw: "abc", want: token.ErrMalformed},
		{name: "no exp", raw: m.WithoutExpiry("u"), want: token.ErrMissingExpiry},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := token.Check(tc.raw, tc.margin, testNow)
			if tc.want == nil {
				require.NoError(t, err)
				require.True(t, token.IsValid(tc.raw, tc.margin, testNow))
				return
			}
			require.ErrorIs(t, err, tc.want)
			require.False(t, token.IsValid(tc.raw, tc.margin, testNow))
		})
	}

	t.Run("remaining", func(t *testing.T) {
		require.Equal(t, 100*time.Second, token.Remaining(raw, testNow))
		require.Zero(t, token.Remaining(raw, testNow.Add(time.Hour)))
		require.Zero(t, token.Remaining("abc", testNow))
	})
}

func TestVerifier(t *testing.T) {
	t.Run("hmac secret", func(t *testing.T) {
		v, err := token.NewVerifier(token.SigningKey{Key: tokenfake.DefaultSecret})
		require.NoError(t, err)
		require.Equal(t, "HS256", v.Algorithm())

		good := tokenfake.New().Access("u-1", time.Hour)
		c, err := v.Verify(context.Background(), good)
		require.NoError(t, err)
		require.Equal(t, "u-1", c.UserUID)

		forged := tokenfake.New(tokenfake.WithSigningKey(jwt.SigningMethodHS256, []byte("other"))).Access("u-1", time.Hour)
		_, err = v.Verify(context.Background(), forged)
		require.ErrorIs(t, err, token.ErrSignature)

		_, err = v.Verify(context.Background(), "garbage")
		require.ErrorIs(t, err, token.ErrMalformed)
	})

	t.Run("rsa public key", func(t *testing.T) {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		require.NoError(t, err)
		pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

		v, err := token.NewVerifier(token.SigningKey{Key: pubPEM})
		require.NoError(t, err)
		require.Equal(t, "RS256", v.Algorithm())

		minter := tokenfake.New(tokenfake.WithSigningKey(jwt.SigningMethodRS256, priv))
		c, err := v.Verify(context.Background(), minter.Access("u-2", time.Hour))
		require.NoError(t, err)
		require.Equal(t, "u-2", c.UserUID)

		// expiry is not the verifier's concern
		_, err = v.Verify(context.Background(), minter.Access("u-2", -time.Hour))
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), tokenfake.New().Access("u-2", time.Hour))
		require.ErrorIs(t, err, token.ErrSignature)
	})

	t.Run("bad keys", func(t *testing.T) {
		_, err := token.NewVerifier(token.SigningKey{})
		require.Error(t, err)

		_, err = token.NewVerifier(token.SigningKey{Key: "-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n"})
		require.Error(t, err)

		_, err = token.NewVerifier(token.SigningKey{Key: "secret", Alg: "RS256"})
		require.Error(t, err)
	})
}
