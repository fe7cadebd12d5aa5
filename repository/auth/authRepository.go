package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"librarydesk/model"
	"librarydesk/util/database"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
	ErrTokenGone  = errors.New("reset token invalid or expired")
)

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByID(ctx context.Context, id string) (*model.User, error)
	UpdateDetails(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SaveResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	// ConsumeResetToken deletes the token and returns its owner if it has not expired.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

const cols = `id, full_name, email, password_hash, role, date_of_birth, address, profile_picture, created_at`

func scan(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var role string
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &role, &u.DateOfBirth, &u.Address,
		&u.ProfilePicture, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	u.FavoriteBooks = []model.BookRef{}
	return u, nil
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func (r *repo) Create(ctx context.Context, u *model.User) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO users (id, full_name, email, password_hash, role, date_of_birth, address, profile_picture)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		u.ID, u.FullName, u.Email, u.PasswordHash, string(u.Role), u.DateOfBirth, u.Address, u.ProfilePicture,
	).Scan(&u.CreatedAt)
	if err != nil {
		return mapDuplicate(err)
	}
	return nil
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return scan(r.db.Pool.QueryRow(ctx, `SELECT `+cols+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *repo) ByID(ctx context.Context, id string) (*model.User, error) {
	return scan(r.db.Pool.QueryRow(ctx, `SELECT `+cols+` FROM users WHERE id = $1`, id))
}

func (r *repo) UpdateDetails(ctx context.Context, u *model.User) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE users
		SET full_name = $2, email = $3, date_of_birth = $4, address = $5, profile_picture = $6
		WHERE id = $1`,
		u.ID, u.FullName, u.Email, u.DateOfBirth, u.Address, u.ProfilePicture)
	if err != nil {
		return mapDuplicate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) UpdatePassword(ctx context.Context, id, hash string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) SaveResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1,$2,$3)`, tokenHash, userID, expires)
	return err
}

func (r *repo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var (
		userID string
		live   bool
	)
	err := r.db.Pool.QueryRow(ctx, `
		DELETE FROM password_resets
		WHERE token_hash = $1
		RETURNING user_id, expires_at > $2`, tokenHash, now).Scan(&userID, &live)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !live) {
		return "", ErrTokenGone
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
