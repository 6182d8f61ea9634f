package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("credential has expired")
)

// Claims represents the signed bearer credential contents.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Verifier validates bearer credentials against a shared HMAC secret.
// Verification is a pure in-memory check with no I/O, so it is safe to
// call on the connection-admission path.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewVerifier creates a verifier for the given shared secret.
func NewVerifier(secret []byte, ttl time.Duration, issuer string) *Verifier {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Verifier{secret: secret, ttl: ttl, issuer: issuer}
}

// Verify validates signature and expiry and returns the embedded identity.
func (v *Verifier) Verify(credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}

	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredCredential
		}
		return "", ErrInvalidCredential
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidCredential
	}

	identity := claims.UserID
	if identity == "" {
		identity = claims.Subject
	}
	if identity == "" {
		return "", ErrInvalidCredential
	}

	return identity, nil
}

// Issue signs a credential for the given identity. Used by the login
// flow and by tests; the websocket handshake only ever verifies.
func (v *Verifier) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// IssueExpired signs an already-expired credential. Only useful for
// exercising the expiry path in tests.
func (v *Verifier) IssueExpired(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * v.ttl)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-v.ttl)),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
