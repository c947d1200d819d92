package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/elpatron68/todo-web/internal/auth"
	applog "github.com/elpatron68/todo-web/internal/log"
)

const uniqueViolation = "23505"

type UserStore struct {
	db Querier
}

var _ auth.UserStore = (*UserStore)(nil)

func NewUserStore(db Querier) *UserStore {
	if db == nil {
		panic("database querier is nil")
	}
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, email string, hash []byte, confirmed bool) (auth.User, error) {
	query := `INSERT INTO users (email, password_hash, confirmed)
		VALUES ($1, $2, $3)
		RETURNING id::text, email, password_hash, confirmed, created_at`
	u, err := scanUser(s.db.QueryRow(ctx, query, auth.NormalizeEmail(email), string(hash), confirmed))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.User{}, auth.ErrUserExists
		}
		applog.Errorf("failed to create user: %v", err)
		return auth.User{}, err
	}
	return u, nil
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (auth.User, error) {
	query := `SELECT id::text, email, password_hash, confirmed, created_at FROM users WHERE email = $1`
	return s.one(ctx, query, auth.NormalizeEmail(email))
}

func (s *UserStore) ByID(ctx context.Context, id string) (auth.User, error) {
	query := `SELECT id::text, email, password_hash, confirmed, created_at FROM users WHERE id = $1`
	return s.one(ctx, query, id)
}

func (s *UserStore) Confirm(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET confirmed = true WHERE id = $1`, id)
	if err != nil {
		applog.Errorf("failed to confirm user: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) one(ctx context.Context, query string, arg any) (auth.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.User{}, auth.ErrUserNotFound
		}
		applog.Errorf("failed to get user: %v", err)
		return auth.User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (auth.User, error) {
	var (
		u    auth.User
		hash string
	)
	if err := row.Scan(&u.ID, &u.Email, &hash, &u.Confirmed, &u.CreatedAt); err != nil {
		return auth.User{}, err
	}
	u.PasswordHash = []byte(hash)
	return u, nil
}
