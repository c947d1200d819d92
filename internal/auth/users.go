package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte // bcrypt hash
	Confirmed    bool
	CreatedAt    time.Time
}

type UserStore interface {
	Create(ctx context.Context, email string, hash []byte, confirmed bool) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	ByID(ctx context.Context, id string) (User, error)
	Confirm(ctx context.Context, id string) error
}

// NormalizeEmail lowercases and trims an address; stores key users by it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type InMemoryUserStore struct {
	mu sync.RWMutex
	// email -> user
	users map[string]User
}

var _ UserStore = (*InMemoryUserStore)(nil)

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]User)}
}

func (s *InMemoryUserStore) Create(ctx context.Context, email string, hash []byte, confirmed bool) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, errors.New("email empty")
	}
	if len(hash) == 0 {
		return User{}, errors.New("hash empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return User{}, ErrUserExists
	}
	u := User{ID: uuid.NewString(), Email: email, PasswordHash: hash, Confirmed: confirmed, CreatedAt: time.Now()}
	s.users[email] = u
	return u, nil
}

func (s *InMemoryUserStore) ByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *InMemoryUserStore) ByID(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *InMemoryUserStore) Confirm(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.users {
		if u.ID == id {
			u.Confirmed = true
			s.users[email] = u
			return nil
		}
	}
	return ErrUserNotFound
}

// AddUserPlain registers a confirmed user with a plain password.
func AddUserPlain(ctx context.Context, store UserStore, email, password string) (User, error) {
	if password == "" {
		return User{}, errors.New("password empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return store.Create(ctx, email, hash, true)
}

// AddUserHash registers a confirmed user from a configured bcrypt hash.
// An existing account with the same email is left untouched.
func AddUserHash(ctx context.Context, store UserStore, email string, bcryptHash []byte) error {
	if _, err := bcrypt.Cost(bcryptHash); err != nil {
		return err
	}
	_, err := store.Create(ctx, email, bcryptHash, true)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	return err
}

func checkPassword(u User, plain string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(plain)) == nil
}
