package booksvc

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"librarydesk/model"
	bookrepo "librarydesk/repository/book"
	"librarydesk/util/imagestore"
	"librarydesk/util/pagination"
)

type ErrCode string

const (
	ErrInvalidCategory ErrCode = "INVALID_CATEGORY"
	ErrInvalidISBN     ErrCode = "INVALID_ISBN"
	ErrInvalidSort     ErrCode = "INVALID_SORT"
	ErrInvalidCopies   ErrCode = "INVALID_COPIES"
	ErrInvalidRating   ErrCode = "INVALID_RATING"
	ErrInvalidImage    ErrCode = "INVALID_IMAGE"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrHasActive       ErrCode = "HAS_ACTIVE_REQUESTS"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Page struct {
	Items      []model.Book
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type Service interface {
	List(ctx context.Context, q model.BookQuery, viewerID string) (*Page, error)
	Get(ctx context.Context, id, viewerID string) (*model.Book, error)
	// Create and Update accept an optional cover image; nil means none.
	Create(ctx context.Context, in model.BookInput, image io.Reader) (*model.Book, error)
	Update(ctx context.Context, id string, in model.BookInput, image io.Reader) (*model.Book, error)
	Delete(ctx context.Context, id string) error
	AddReview(ctx context.Context, bookID, userID string, rating int, comment string) (*model.Review, float64, error)
}

type service struct {
	r      bookrepo.Repo
	images imagestore.Store
}

func New(r bookrepo.Repo, images imagestore.Store) Service {
	return &service{r: r, images: images}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func checkInput(in *model.BookInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if !model.ValidCategory(in.Category) {
		return makeErr(ErrInvalidCategory)
	}
	if !model.ValidateISBN(in.ISBN) {
		return makeErr(ErrInvalidISBN)
	}
	in.ISBN = model.NormalizeISBN(in.ISBN)
	if in.TotalCopies < 1 {
		return makeErr(ErrInvalidCopies)
	}
	in.Price = model.Round2(in.Price)
	return nil
}

func apply(b *model.Book, in model.BookInput) {
	b.Title = in.Title
	b.Author = in.Author
	b.Description = in.Description
	b.Category = model.Category(in.Category)
	b.ISBN = in.ISBN
	b.PublicationYear = in.PublicationYear
	b.Price = in.Price
}

func (s *service) saveImage(image io.Reader) (string, error) {
	if image == nil || s.images == nil {
		return "", nil
	}
	path, err := s.images.Save(image, "books")
	if err != nil {
		return "", makeErr(ErrInvalidImage)
	}
	return path, nil
}

func (s *service) List(ctx context.Context, q model.BookQuery, viewerID string) (*Page, error) {
	if q.Category != "" && !model.ValidCategory(q.Category) {
		return nil, makeErr(ErrInvalidCategory)
	}
	if !model.ValidSort(q.Sort) {
		return nil, makeErr(ErrInvalidSort)
	}
	p := pagination.Books.Normalize(q.Page, q.Limit)
	items, total, err := s.r.List(ctx, q, p, viewerID)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: pagination.TotalPages(total, p.Limit),
	}, nil
}

func (s *service) Get(ctx context.Context, id, viewerID string) (*model.Book, error) {
	if !validID(id) {
		return nil, makeErr(ErrNotFound)
	}
	b, err := s.r.Get(ctx, id, viewerID)
	if errors.Is(err, bookrepo.ErrNotFound) {
		return nil, makeErr(ErrNotFound)
	}
	return b, err
}

func (s *service) Create(ctx context.Context, in model.BookInput, image io.Reader) (*model.Book, error) {
	if err := checkInput(&in); err != nil {
		return nil, err
	}
	path, err := s.saveImage(image)
	if err != nil {
		return nil, err
	}

	b := &model.Book{ID: uuid.NewString(), Image: path}
	apply(b, in)
	b.TotalCopies = in.TotalCopies
	b.AvailableCopies = in.TotalCopies
	if err := s.r.Create(ctx, b); err != nil {
		if path != "" {
			_ = s.images.Remove(path)
		}
		return nil, err
	}
	return b, nil
}

// Update shifts availableCopies by the change in totalCopies so borrowed copies stay accounted for.
func (s *service) Update(ctx context.Context, id string, in model.BookInput, image io.Reader) (*model.Book, error) {
	if !validID(id) {
		return nil, makeErr(ErrNotFound)
	}
	if err := checkInput(&in); err != nil {
		return nil, err
	}
	path, err := s.saveImage(image)
	if err != nil {
		return nil, err
	}

	var oldImage string
	b, err := s.r.Update(ctx, id, func(b *model.Book) error {
		avail := b.AvailableCopies + in.TotalCopies - b.TotalCopies
		if avail < 0 {
			return makeErr(ErrInvalidCopies)
		}
		apply(b, in)
		b.TotalCopies = in.TotalCopies
		b.AvailableCopies = avail
		if path != "" {
			oldImage, b.Image = b.Image, path
		}
		return nil
	})
	if err != nil {
		if path != "" {
			_ = s.images.Remove(path)
		}
		if errors.Is(err, bookrepo.ErrNotFound) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if oldImage != "" {
		_ = s.images.Remove(oldImage)
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return makeErr(ErrNotFound)
	}
	n, err := s.r.CountActiveRequests(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return makeErr(ErrHasActive)
	}
	if err := s.r.Delete(ctx, id); err != nil {
		if errors.Is(err, bookrepo.ErrNotFound) {
			return makeErr(ErrNotFound)
		}
		return err
	}
	return nil
}

// AddReview returns the stored review and the book's new mean rating.
func (s *service) AddReview(ctx context.Context, bookID, userID string, rating int, comment string) (*model.Review, float64, error) {
	if !model.ValidRating(rating) {
		return nil, 0, makeErr(ErrInvalidRating)
	}
	if !validID(bookID) {
		return nil, 0, makeErr(ErrNotFound)
	}
	rv := &model.Review{
		ID:      uuid.NewString(),
		User:    model.UserRef{ID: userID},
		Rating:  rating,
		Comment: strings.TrimSpace(comment),
	}
	mean, err := s.r.AddReview(ctx, bookID, rv)
	if err != nil {
		if errors.Is(err, bookrepo.ErrNotFound) {
			return nil, 0, makeErr(ErrNotFound)
		}
		return nil, 0, err
	}
	return rv, mean, nil
}
