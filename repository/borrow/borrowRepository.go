package borrowrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"librarydesk/model"
	"librarydesk/util/database"
	"librarydesk/util/pagination"
)

var (
	ErrNotFound     = errors.New("borrow request not found")
	ErrBookNotFound = errors.New("book not found")
	ErrNoCopies     = errors.New("no copies available")
	// ErrActiveExists is returned when the one-active-request index rejects an insert.
	ErrActiveExists = errors.New("active request already exists")
)

type Repo interface {
	// InTx runs fn in a single transaction; any error rolls it back.
	InTx(ctx context.Context, fn func(tx TxRepo) error) error
	Get(ctx context.Context, id string) (*model.BorrowRequest, error)
	ListAll(ctx context.Context, q model.BorrowQuery, p pagination.Params) ([]model.BorrowRequest, int64, error)
	ListByUser(ctx context.Context, userID string) ([]model.BorrowRequest, error)
	// ListOverdue returns approved requests whose expected return date is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]model.BorrowRequest, error)
	// ListDueBetween returns approved requests due in [from, to).
	ListDueBetween(ctx context.Context, from, to time.Time) ([]model.BorrowRequest, error)
}

type TxRepo interface {
	LockBook(ctx context.Context, bookID string) (*model.BookRef, int, error)
	FindActive(ctx context.Context, userID, bookID string) (string, error)
	Insert(ctx context.Context, r *model.BorrowRequest) error
	LockRequest(ctx context.Context, id string) (*model.BorrowRequest, error)
	UpdateStatus(ctx context.Context, r *model.BorrowRequest) error
	TakeCopy(ctx context.Context, bookID string) error
	ReleaseCopy(ctx context.Context, bookID string) error
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

var pg = goqu.Dialect("postgres")

const selectRequest = `
	SELECT br.id, br.status, br.created_at, br.expected_return_date, br.actual_return_date,
	       br.total_amount, br.fine_amount,
	       u.id, u.full_name, u.email,
	       b.id, b.title, b.author, b.image, b.price
	FROM borrow_requests br
	JOIN users u ON u.id = br.user_id
	JOIN books b ON b.id = br.book_id`

var requestCols = []any{
	"br.id", "br.status", "br.created_at", "br.expected_return_date", "br.actual_return_date",
	"br.total_amount", "br.fine_amount",
	"u.id", "u.full_name", "u.email",
	"b.id", "b.title", "b.author", "b.image", "b.price",
}

func scanRequest(row pgx.Row) (*model.BorrowRequest, error) {
	var (
		r      model.BorrowRequest
		status string
	)
	err := row.Scan(&r.ID, &status, &r.CreatedAt, &r.ExpectedReturnDate, &r.ActualReturnDate,
		&r.TotalAmount, &r.FineAmount,
		&r.User.ID, &r.User.FullName, &r.User.Email,
		&r.Book.ID, &r.Book.Title, &r.Book.Author, &r.Book.Image, &r.Book.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Status = model.BorrowStatus(status)
	return &r, nil
}

func collect(rows pgx.Rows) ([]model.BorrowRequest, error) {
	defer rows.Close()
	out := []model.BorrowRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (r *repo) InTx(ctx context.Context, fn func(tx TxRepo) error) (err error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(&txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repo) Get(ctx context.Context, id string) (*model.BorrowRequest, error) {
	return scanRequest(r.db.Pool.QueryRow(ctx, selectRequest+` WHERE br.id = $1`, id))
}

func (r *repo) ListAll(ctx context.Context, q model.BorrowQuery, p pagination.Params) ([]model.BorrowRequest, int64, error) {
	ds := pg.From(goqu.T("borrow_requests").As("br")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("br.user_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("br.book_id")))).
		Prepared(true)
	if q.Search != "" {
		pat := "%" + q.Search + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("u.full_name").ILike(pat),
			goqu.I("u.email").ILike(pat),
			goqu.I("b.title").ILike(pat),
		))
	}
	if q.Status != "" {
		ds = ds.Where(goqu.I("br.status").Eq(q.Status))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.Pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count borrow requests: %w", err)
	}

	listSQL, args, err := ds.Select(requestCols...).
		Order(goqu.I("br.created_at").Desc(), goqu.I("br.id").Desc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list borrow requests: %w", err)
	}
	out, err := collect(rows)
	return out, total, err
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]model.BorrowRequest, error) {
	rows, err := r.db.Pool.Query(ctx, selectRequest+`
		WHERE br.user_id = $1
		ORDER BY br.created_at DESC, br.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list my requests: %w", err)
	}
	return collect(rows)
}

func (r *repo) ListOverdue(ctx context.Context, now time.Time) ([]model.BorrowRequest, error) {
	rows, err := r.db.Pool.Query(ctx, selectRequest+`
		WHERE br.status = 'approved'
		AND br.expected_return_date < $1
		ORDER BY br.expected_return_date`, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	return collect(rows)
}

func (r *repo) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.BorrowRequest, error) {
	rows, err := r.db.Pool.Query(ctx, selectRequest+`
		WHERE br.status = 'approved'
		AND br.expected_return_date >= $1
		AND br.expected_return_date < $2
		ORDER BY br.expected_return_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due: %w", err)
	}
	return collect(rows)
}

type txRepo struct{ tx pgx.Tx }

// LockBook returns the book summary and its available copy count.
func (t *txRepo) LockBook(ctx context.Context, bookID string) (*model.BookRef, int, error) {
	var (
		b     model.BookRef
		avail int
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, title, author, image, price, available_copies
		FROM books
		WHERE id = $1
		FOR UPDATE`, bookID).Scan(&b.ID, &b.Title, &b.Author, &b.Image, &b.Price, &avail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrBookNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return &b, avail, nil
}

func (t *txRepo) FindActive(ctx context.Context, userID, bookID string) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `
		SELECT id
		FROM borrow_requests
		WHERE user_id = $1 AND book_id = $2
		AND status IN ('pending','approved')
		LIMIT 1`, userID, bookID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (t *txRepo) Insert(ctx context.Context, r *model.BorrowRequest) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO borrow_requests (id, user_id, book_id, status, expected_return_date, total_amount)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		r.ID, r.User.ID, r.Book.ID, string(r.Status), r.ExpectedReturnDate, r.TotalAmount,
	).Scan(&r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrActiveExists
		}
		return fmt.Errorf("insert borrow request: %w", err)
	}
	return nil
}

func (t *txRepo) LockRequest(ctx context.Context, id string) (*model.BorrowRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx, selectRequest+` WHERE br.id = $1 FOR UPDATE OF br`, id))
}

func (t *txRepo) UpdateStatus(ctx context.Context, r *model.BorrowRequest) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE borrow_requests
		SET status = $2, actual_return_date = $3, fine_amount = $4
		WHERE id = $1`, r.ID, string(r.Status), r.ActualReturnDate, r.FineAmount)
	if err != nil {
		return fmt.Errorf("update borrow status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) TakeCopy(ctx context.Context, bookID string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1,
		    borrowed_count = borrowed_count + 1
		WHERE id = $1 AND available_copies > 0`, bookID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoCopies
	}
	return nil
}

func (t *txRepo) ReleaseCopy(ctx context.Context, bookID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE books
		SET available_copies = LEAST(available_copies + 1, total_copies)
		WHERE id = $1`, bookID)
	return err
}
