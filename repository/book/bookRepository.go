package bookrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"librarydesk/model"
	"librarydesk/util/database"
	"librarydesk/util/pagination"
)

var ErrNotFound = errors.New("book not found")

type Repo interface {
	List(ctx context.Context, q model.BookQuery, p pagination.Params, viewerID string) ([]model.Book, int64, error)
	Get(ctx context.Context, id, viewerID string) (*model.Book, error)
	Create(ctx context.Context, b *model.Book) error
	// Update locks the row, lets fn mutate it and persists the result.
	Update(ctx context.Context, id string, fn func(b *model.Book) error) (*model.Book, error)
	Delete(ctx context.Context, id string) error
	CountActiveRequests(ctx context.Context, bookID string) (int, error)
	// AddReview appends rv and stores the recomputed mean rating.
	AddReview(ctx context.Context, bookID string, rv *model.Review) (float64, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

var pg = goqu.Dialect("postgres")

var bookCols = []any{
	"b.id", "b.title", "b.author", "b.description", "b.category", "b.isbn", "b.publication_year",
	"b.price", "b.total_copies", "b.available_copies", "b.ratings", "b.borrowed_count", "b.image",
	"b.created_at",
}

func favoriteExpr(viewerID string) exp.AliasedExpression {
	if viewerID == "" {
		return goqu.L("FALSE").As("is_favorite")
	}
	return goqu.L("EXISTS (SELECT 1 FROM favorites f WHERE f.book_id = b.id AND f.user_id = ?)", viewerID).
		As("is_favorite")
}

func orderFor(sort string) []exp.OrderedExpression {
	switch sort {
	case model.SortPriceAsc:
		return []exp.OrderedExpression{goqu.I("b.price").Asc(), goqu.I("b.created_at").Desc()}
	case model.SortPriceDesc:
		return []exp.OrderedExpression{goqu.I("b.price").Desc(), goqu.I("b.created_at").Desc()}
	case model.SortRatingDesc:
		return []exp.OrderedExpression{goqu.I("b.ratings").Desc(), goqu.I("b.created_at").Desc()}
	case model.SortRatingAsc:
		return []exp.OrderedExpression{goqu.I("b.ratings").Asc(), goqu.I("b.created_at").Desc()}
	}
	return []exp.OrderedExpression{goqu.I("b.created_at").Desc(), goqu.I("b.id").Desc()}
}

func filtered(q model.BookQuery) *goqu.SelectDataset {
	ds := pg.From(goqu.T("books").As("b")).Prepared(true)
	if q.Search != "" {
		pat := "%" + q.Search + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("b.title").ILike(pat),
			goqu.I("b.author").ILike(pat),
			goqu.I("b.isbn").ILike(pat),
		))
	}
	if q.Category != "" {
		ds = ds.Where(goqu.I("b.category").Eq(q.Category))
	}
	if q.MinRating > 0 {
		ds = ds.Where(goqu.I("b.ratings").Gte(q.MinRating))
	}
	return ds
}

func (r *repo) List(ctx context.Context, q model.BookQuery, p pagination.Params, viewerID string) ([]model.Book, int64, error) {
	base := filtered(q)

	countSQL, countArgs, err := base.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := r.db.Pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	cols := append(append([]any{}, bookCols...), favoriteExpr(viewerID))
	listSQL, args, err := base.Select(cols...).
		Order(orderFor(q.Sort)...).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	rows, err := r.db.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]model.Book, 0, p.Limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

func (r *repo) Get(ctx context.Context, id, viewerID string) (*model.Book, error) {
	cols := append(append([]any{}, bookCols...), favoriteExpr(viewerID))
	q, args, err := pg.From(goqu.T("books").As("b")).Prepared(true).
		Select(cols...).
		Where(goqu.I("b.id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}
	b, err := scanBook(r.db.Pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	if b.Reviews, err = r.reviews(ctx, r.db.Pool, id); err != nil {
		return nil, err
	}
	return b, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *repo) reviews(ctx context.Context, db querier, bookID string) ([]model.Review, error) {
	const q = `
		SELECT rv.id, rv.user_id, COALESCE(u.full_name, ''), rv.rating, rv.comment, rv.created_at
		FROM reviews rv
		LEFT JOIN users u ON u.id = rv.user_id
		WHERE rv.book_id = $1
		ORDER BY rv.created_at, rv.id`
	rows, err := db.Query(ctx, q, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.User.ID, &rv.User.FullName, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
		INSERT INTO books (id, title, author, description, category, isbn, publication_year, price,
		                   total_copies, available_copies, image)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q,
		b.ID, b.Title, b.Author, b.Description, b.Category, b.ISBN, b.PublicationYear, b.Price,
		b.TotalCopies, b.AvailableCopies, b.Image,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	if b.Reviews == nil {
		b.Reviews = []model.Review{}
	}
	return nil
}

func (r *repo) Update(ctx context.Context, id string, fn func(b *model.Book) error) (out *model.Book, err error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	q, args, err := pg.From(goqu.T("books").As("b")).Prepared(true).
		Select(append(append([]any{}, bookCols...), goqu.L("FALSE"))...).
		Where(goqu.I("b.id").Eq(id)).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, err
	}
	b, err := scanBook(tx.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	if err = fn(b); err != nil {
		return nil, err
	}

	const upd = `
		UPDATE books
		SET title=$2, author=$3, description=$4, category=$5, isbn=$6, publication_year=$7,
		    price=$8, total_copies=$9, available_copies=$10, image=$11
		WHERE id=$1`
	if _, err = tx.Exec(ctx, upd,
		b.ID, b.Title, b.Author, b.Description, b.Category, b.ISBN, b.PublicationYear,
		b.Price, b.TotalCopies, b.AvailableCopies, b.Image,
	); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	if b.Reviews, err = r.reviews(ctx, tx, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) CountActiveRequests(ctx context.Context, bookID string) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM borrow_requests
		WHERE book_id = $1
		AND status IN ('pending','approved')`
	var n int
	err := r.db.Pool.QueryRow(ctx, q, bookID).Scan(&n)
	return n, err
}

func (r *repo) AddReview(ctx context.Context, bookID string, rv *model.Review) (ratings float64, err error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	if err = tx.QueryRow(ctx, `SELECT TRUE FROM books WHERE id = $1 FOR UPDATE`, bookID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	const ins = `
		INSERT INTO reviews (id, book_id, user_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`
	if err = tx.QueryRow(ctx, ins, rv.ID, bookID, rv.User.ID, rv.Rating, rv.Comment).Scan(&rv.CreatedAt); err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT full_name FROM users WHERE id = $1`, rv.User.ID).Scan(&rv.User.FullName); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reviewer name: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT rating FROM reviews WHERE book_id = $1`, bookID)
	if err != nil {
		return 0, err
	}
	all, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return 0, err
	}
	ratings = model.MeanRating(all)

	if _, err = tx.Exec(ctx, `UPDATE books SET ratings = $2 WHERE id = $1`, bookID, ratings); err != nil {
		return 0, err
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return ratings, nil
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var (
		b        model.Book
		category string
		created  time.Time
	)
	dest := []any{
		&b.ID, &b.Title, &b.Author, &b.Description, &category, &b.ISBN, &b.PublicationYear,
		&b.Price, &b.TotalCopies, &b.AvailableCopies, &b.Ratings, &b.BorrowedCount, &b.Image, &created,
		&b.IsFavorite,
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Category = model.Category(category)
	b.CreatedAt = created
	b.Reviews = []model.Review{}
	return &b, nil
}
