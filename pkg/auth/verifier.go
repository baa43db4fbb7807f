package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates a compact JWS access token and returns its typed
// claims. Two interchangeable implementations exist; callers depend only on
// the interface.
type TokenVerifier interface {
	Verify(tokenString string) (*AccessTokenClaims, error)
}

// NewJWTVerifier returns the library-backed verifier.
func NewJWTVerifier(cfg config.JWTConfig) TokenVerifier {
	return &jwtVerifier{cfg: cfg}
}

type jwtVerifier struct {
	cfg config.JWTConfig
}

func (v *jwtVerifier) Verify(tokenString string) (*AccessTokenClaims, error) {
	if v.cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(v.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// NewHMACVerifier returns a verifier built directly on crypto/hmac for
// runtimes where pulling the JWT library is undesirable. It accepts the same
// HS256 tokens as the library-backed verifier.
func NewHMACVerifier(cfg config.JWTConfig) TokenVerifier {
	return &hmacVerifier{cfg: cfg, now: time.Now}
}

type hmacVerifier struct {
	cfg config.JWTConfig
	now func() time.Time
}

func (v *hmacVerifier) Verify(tokenString string) (*AccessTokenClaims, error) {
	if v.cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed token")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Alg != jwtSigningMethod.Alg() {
		return nil, fmt.Errorf("unexpected signing method %s", header.Alg)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(v.cfg.Secret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return nil, fmt.Errorf("signature mismatch")
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decoding claims: %w", err)
	}
	claims := &AccessTokenClaims{}
	if err := json.Unmarshal(claimsJSON, claims); err != nil {
		return nil, fmt.Errorf("parsing claims: %w", err)
	}

	now := v.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("token expired")
	}
	if v.cfg.Issuer != "" && claims.Issuer != v.cfg.Issuer {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}

	return claims, nil
}
