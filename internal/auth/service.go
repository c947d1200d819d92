package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
)

// User-facing messages. They mirror what a hosted auth service reports.
const (
	MsgInvalidCredentials = "Invalid login credentials"
	MsgEmailNotConfirmed  = "Email not confirmed"
	MsgUserExists         = "User already registered"
	MsgWeakPassword       = "Password should be at least 6 characters"
	MsgInvalidEmail       = "Unable to validate email address: invalid format"
	MsgInvalidSession     = "Invalid session"
	MsgInvalidLink        = "Email link is invalid or has expired"
)

const minPasswordLen = 6

type Options struct {
	Secret              []byte
	SessionTTL          time.Duration
	RequireConfirmation bool
	// BaseURL prefixes confirmation links, e.g. "http://localhost:8080".
	BaseURL string
	Now     func() time.Time
	// SendConfirmation delivers the confirmation link out of band.
	// The default logs it.
	SendConfirmation func(email, link string)
}

// Service is the auth collaborator: password accounts in a UserStore and
// signed, revocable session tokens.
type Service struct {
	users   UserStore
	tokens  *tokenSigner
	opts    Options
	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

var _ backend.AuthClient = (*Service)(nil)

func NewService(users UserStore, opts Options) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is nil")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if len(opts.Secret) == 0 {
		applog.Warnf("auth: no secret configured, sessions will not survive a restart")
		opts.Secret = make([]byte, 32)
		if _, err := rand.Read(opts.Secret); err != nil {
			return nil, err
		}
	}
	if opts.SendConfirmation == nil {
		opts.SendConfirmation = func(email, link string) {
			applog.Infof("auth: confirmation link for %s: %s", email, link)
		}
	}
	return &Service{
		users:   users,
		tokens:  &tokenSigner{key: opts.Secret, now: opts.Now},
		opts:    opts,
		revoked: make(map[string]time.Time),
	}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, backend.NewError("signIn", MsgInvalidCredentials, nil)
		}
		return nil, backend.NewError("signIn", "Service unavailable, please try again", err)
	}
	if !checkPassword(u, password) {
		return nil, backend.NewError("signIn", MsgInvalidCredentials, nil)
	}
	if s.opts.RequireConfirmation && !u.Confirmed {
		return nil, backend.NewError("signIn", MsgEmailNotConfirmed, nil)
	}
	return s.newSession(u)
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, backend.NewError("signUp", MsgInvalidEmail, nil)
	}
	if len(password) < minPasswordLen {
		return nil, backend.NewError("signUp", MsgWeakPassword, nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, backend.NewError("signUp", "Service unavailable, please try again", err)
	}
	u, err := s.users.Create(ctx, email, hash, !s.opts.RequireConfirmation)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, backend.NewError("signUp", MsgUserExists, err)
		}
		return nil, backend.NewError("signUp", "Service unavailable, please try again", err)
	}
	applog.Infof("auth: user registered: id=%s", u.ID)

	if s.opts.RequireConfirmation {
		token, _, err := s.tokens.issue(kindConfirm, u.ID, u.Email, 24*time.Hour)
		if err != nil {
			return nil, backend.NewError("signUp", "Error sending confirmation email", err)
		}
		link := strings.TrimRight(s.opts.BaseURL, "/") + "/auth/confirm?token=" + url.QueryEscape(token)
		s.opts.SendConfirmation(u.Email, link)
		return nil, nil
	}
	return s.newSession(u)
}

// Confirm activates the account named by a confirmation token.
func (s *Service) Confirm(ctx context.Context, token string) error {
	c, err := s.tokens.verify(token, kindConfirm)
	if err != nil {
		return backend.NewError("confirm", MsgInvalidLink, err)
	}
	u, err := s.users.ByID(ctx, c.UserID)
	if err != nil {
		return backend.NewError("confirm", MsgInvalidLink, err)
	}
	if u.Confirmed {
		applog.Debugf("auth: user already confirmed: id=%s", u.ID)
		return nil
	}
	if err := s.users.Confirm(ctx, u.ID); err != nil {
		return backend.NewError("confirm", MsgInvalidLink, err)
	}
	applog.Infof("auth: user confirmed: id=%s", c.UserID)
	return nil
}

func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	c, err := s.tokens.verify(accessToken, kindSession)
	if err != nil {
		return backend.NewError("signOut", MsgInvalidSession, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[c.ID] = c.ExpiresAt
	return nil
}

func (s *Service) CurrentSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	if accessToken == "" {
		return nil, nil
	}
	c, err := s.tokens.verify(accessToken, kindSession)
	if err != nil {
		applog.Debugf("auth: rejected session token: %v", err)
		return nil, nil
	}
	s.mu.Lock()
	_, revoked := s.revoked[c.ID]
	s.mu.Unlock()
	if revoked {
		return nil, nil
	}
	return &backend.Session{
		ID:          c.ID,
		UserID:      c.UserID,
		Email:       c.Email,
		AccessToken: accessToken,
		ExpiresAt:   c.ExpiresAt,
	}, nil
}

func (s *Service) newSession(u User) (*backend.Session, error) {
	token, c, err := s.tokens.issue(kindSession, u.ID, u.Email, s.opts.SessionTTL)
	if err != nil {
		return nil, backend.NewError("session", "Service unavailable, please try again", err)
	}
	return &backend.Session{ID: c.ID, UserID: u.ID, Email: u.Email, AccessToken: token, ExpiresAt: c.ExpiresAt}, nil
}

// validEmail accepts a bare RFC 5322 address whose domain has a dot.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return strings.Contains(email[at+1:], ".")
}
