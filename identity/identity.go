// Package identity resolves the signed-in user from a bearer token issued by
// the platform identity provider. Tokens are HS256-signed JWTs whose subject
// is the numeric user id.
package identity

import (
	stderrors "errors"
	"strconv"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/vitrinelive/storefront/errors"
)

// Role is the platform-wide role carried in the token.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
	RoleBuyer Role = "buyer"
)

// User is the authenticated caller.
type User struct {
	ID    int64
	Email string
	Role  Role
}

// Claims is the JWT payload shape the identity provider signs.
type Claims struct {
	gojwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Config configures token verification.
type Config struct {
	// Secret is the HMAC key shared with the identity provider.
	Secret string `mapstructure:"secret"`

	// Issuer, when set, is enforced against the "iss" claim.
	Issuer string `mapstructure:"issuer"`

	// Leeway tolerates clock skew when validating time claims.
	Leeway time.Duration `mapstructure:"leeway"`
}

// Verifier parses and validates bearer tokens.
type Verifier struct {
	cfg Config
}

// NewVerifier creates a Verifier. The secret is required.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.MissingField("identity.secret")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 30 * time.Second
	}
	return &Verifier{cfg: cfg}, nil
}

// Parse validates the token and returns the authenticated user.
// Expired tokens and malformed tokens yield distinct error codes so callers
// can tell a re-login prompt from a rejected request.
func (v *Verifier) Parse(tokenString string) (User, error) {
	claims := &Claims{}
	token, err := gojwt.ParseWithClaims(tokenString, claims, v.keyFunc, v.parserOptions()...)
	if err != nil {
		if stderrors.Is(err, gojwt.ErrTokenExpired) {
			return User{}, errors.TokenExpired()
		}
		return User{}, errors.InvalidToken().WithCause(err)
	}
	if !token.Valid {
		return User{}, errors.InvalidToken()
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return User{}, errors.InvalidToken().WithCause(err)
	}

	return User{
		ID:    id,
		Email: claims.Email,
		Role:  Role(claims.Role),
	}, nil
}

func (v *Verifier) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.cfg.Issuer))
	}
	return opts
}

func (v *Verifier) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return nil, stderrors.New("identity: unexpected signing method: " + token.Method.Alg())
	}
	return []byte(v.cfg.Secret), nil
}
