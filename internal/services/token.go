package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenErrorKind int

const (
	TokenMalformed TokenErrorKind = iota + 1
	TokenExpired
	TokenSignatureInvalid
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenExpired:
		return "expired"
	case TokenSignatureInvalid:
		return "signature invalid"
	default:
		return "malformed"
	}
}

// TokenError classifies a bearer token rejection. Compare with errors.Is
// against ErrTokenExpired, ErrTokenMalformed or ErrTokenSignatureInvalid.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return "token " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "token " + e.Kind.String()
}

func (e *TokenError) Unwrap() error { return e.Err }

func (e *TokenError) Is(target error) bool {
	t, ok := target.(*TokenError)
	return ok && t.Kind == e.Kind
}

var (
	ErrTokenMalformed        = &TokenError{Kind: TokenMalformed}
	ErrTokenExpired          = &TokenError{Kind: TokenExpired}
	ErrTokenSignatureInvalid = &TokenError{Kind: TokenSignatureInvalid}
)

// TokenIssuer mints and verifies stateless HS256 bearer tokens carrying the
// user id as the subject.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token issuer: signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token issuer: ttl must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *TokenIssuer) Issue(subjectID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the subject.
func (t *TokenIssuer) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", &TokenError{Kind: TokenExpired, Err: err}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", &TokenError{Kind: TokenSignatureInvalid, Err: err}
		default:
			return "", &TokenError{Kind: TokenMalformed, Err: err}
		}
	}
	if claims.Subject == "" {
		return "", &TokenError{Kind: TokenMalformed, Err: errors.New("missing subject")}
	}
	return claims.Subject, nil
}
