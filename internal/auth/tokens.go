package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

type tokenKind string

const (
	kindSession tokenKind = "session"
	kindConfirm tokenKind = "confirm"
)

var errTokenKind = errors.New("unexpected token kind")

type claims struct {
	UserID    string
	Email     string
	ID        string
	ExpiresAt time.Time
}

// tokenSigner issues and verifies HS256 tokens.
type tokenSigner struct {
	key []byte
	now func() time.Time
}

func (s *tokenSigner) issue(kind tokenKind, userID, email string, ttl time.Duration) (string, claims, error) {
	now := s.now()
	c := claims{UserID: userID, Email: email, ID: uuid.NewString(), ExpiresAt: now.Add(ttl).Truncate(time.Second)}
	tok, err := jwt.NewBuilder().
		Subject(userID).
		JwtID(c.ID).
		IssuedAt(now).
		Expiration(c.ExpiresAt).
		Claim("email", email).
		Claim("kind", string(kind)).
		Build()
	if err != nil {
		return "", claims{}, fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), s.key))
	if err != nil {
		return "", claims{}, fmt.Errorf("sign token: %w", err)
	}
	return string(signed), c, nil
}

func (s *tokenSigner) verify(raw string, kind tokenKind) (claims, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256(), s.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return claims{}, err
	}
	var k string
	if err := tok.Get("kind", &k); err != nil || tokenKind(k) != kind {
		return claims{}, errTokenKind
	}
	var c claims
	c.UserID, _ = tok.Subject()
	c.ID, _ = tok.JwtID()
	c.ExpiresAt, _ = tok.Expiration()
	_ = tok.Get("email", &c.Email)
	if c.UserID == "" || c.ID == "" {
		return claims{}, errors.New("token missing subject or id")
	}
	return c, nil
}
