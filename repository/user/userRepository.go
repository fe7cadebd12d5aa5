package userrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"

	"librarydesk/model"
	"librarydesk/util/database"
	"librarydesk/util/pagination"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrBookNotFound = errors.New("book not found")
)

type Repo interface {
	List(ctx context.Context, q model.UserQuery, p pagination.Params) ([]model.User, int64, error)
	// Get loads the user with favorite and borrowed book summaries.
	Get(ctx context.Context, id string) (*model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) error
	Delete(ctx context.Context, id string) error
	CountActiveRequests(ctx context.Context, userID string) (int, error)
	AddFavorite(ctx context.Context, userID, bookID string) error
	RemoveFavorite(ctx context.Context, userID, bookID string) error
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

var pg = goqu.Dialect("postgres")

const userCols = `u.id, u.full_name, u.email, u.role, u.date_of_birth, u.address, u.profile_picture, u.created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var role string
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &role, &u.DateOfBirth, &u.Address, &u.ProfilePicture, &u.CreatedAt)
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

func (r *repo) List(ctx context.Context, q model.UserQuery, p pagination.Params) ([]model.User, int64, error) {
	ds := pg.From(goqu.T("users").As("u")).Prepared(true)
	if q.Search != "" {
		pat := "%" + q.Search + "%"
		ds = ds.Where(goqu.Or(goqu.I("u.full_name").ILike(pat), goqu.I("u.email").ILike(pat)))
	}
	if q.Role != "" {
		ds = ds.Where(goqu.I("u.role").Eq(q.Role))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.Pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	listSQL, args, err := ds.Select(goqu.L(userCols)).
		Order(goqu.I("u.created_at").Desc(), goqu.I("u.id").Desc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]model.User, 0, p.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (r *repo) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userCols+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		return nil, err
	}

	favRows, err := r.db.Pool.Query(ctx, `
		SELECT b.id, b.title, b.author, b.image, b.price
		FROM favorites f
		JOIN books b ON b.id = f.book_id
		WHERE f.user_id = $1
		ORDER BY f.created_at, b.id`, id)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer favRows.Close()
	for favRows.Next() {
		var b model.BookRef
		if err := favRows.Scan(&b.ID, &b.Title, &b.Author, &b.Image, &b.Price); err != nil {
			return nil, err
		}
		u.FavoriteBooks = append(u.FavoriteBooks, b)
	}
	if err := favRows.Err(); err != nil {
		return nil, err
	}

	brRows, err := r.db.Pool.Query(ctx, `
		SELECT br.id, b.id, b.title, b.author, b.image, b.price, br.status, br.expected_return_date
		FROM borrow_requests br
		JOIN books b ON b.id = br.book_id
		WHERE br.user_id = $1
		AND br.status IN ('approved','overdue','returned')
		ORDER BY br.created_at DESC, br.id`, id)
	if err != nil {
		return nil, fmt.Errorf("list borrowed: %w", err)
	}
	defer brRows.Close()
	for brRows.Next() {
		var s model.BorrowSummary
		var status string
		if err := brRows.Scan(&s.ID, &s.Book.ID, &s.Book.Title, &s.Book.Author, &s.Book.Image, &s.Book.Price,
			&status, &s.ExpectedReturnDate); err != nil {
			return nil, err
		}
		s.Status = model.BorrowStatus(status)
		u.BorrowedBooks = append(u.BorrowedBooks, s)
	}
	return u, brRows.Err()
}

func (r *repo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) CountActiveRequests(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM borrow_requests
		WHERE user_id = $1
		AND status IN ('pending','approved')`, userID).Scan(&n)
	return n, err
}

func (r *repo) AddFavorite(ctx context.Context, userID, bookID string) error {
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrBookNotFound
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO favorites (user_id, book_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, book_id) DO NOTHING`, userID, bookID)
	return err
}

func (r *repo) RemoveFavorite(ctx context.Context, userID, bookID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	return err
}
