package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-charger-client/internal/utils"
)

// Claims is the subset of a credential's payload the client cares about.
// Nothing here has been signature checked unless it came from a Verifier.
type Claims struct {
	Subject   string    // sub
	UserUID   string    // user_uid, uid or user_id, whichever is present first
	TokenType string    // token_type (access or refresh) when the issuer sets it
	ID        string    // jti
	Audience  []string  // aud
	IssuedAt  time.Time // iat, zero when absent
	ExpiresAt time.Time // exp, zero when absent
}

func (c *Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// Inspect decodes a raw credential without verifying its signature
func Inspect(raw string) (*Claims, error) {
	mc, err := parseUnverified(raw)
	if err != nil {
		return nil, err
	}
	return claimsFromMap(mc)
}

func parseUnverified(raw string) (jwt.MapClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmpty
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	mc, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: error extracting claims", ErrMalformed)
	}
	return mc, nil
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp: %v", ErrMalformed, err)
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: iat: %v", ErrMalformed, err)
	}

	sub, _ := mc["sub"].(string)
	tokenType, _ := mc["token_type"].(string)
	jti, _ := mc["jti"].(string)

	c := &Claims{
		Subject:   sub,
		UserUID:   utils.FirstNonEmpty(claimString(mc, "user_uid"), claimString(mc, "uid"), claimString(mc, "user_id")),
		TokenType: tokenType,
		ID:        jti,
		Audience:  utils.ToStringSlice(mc["aud"]),
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

// claimString also accepts numeric ids, which some issuers use for user_id
func claimString(mc jwt.MapClaims, key string) string {
	switch v := mc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
