package booksvc_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"librarydesk/model"
	bookrepo "librarydesk/repository/book"
	booksvc "librarydesk/service/book"
	"librarydesk/util/pagination"
)

type repoMock struct {
	listFn      func(ctx context.Context, q model.BookQuery, p pagination.Params, viewerID string) ([]model.Book, int64, error)
	getFn       func(ctx context.Context, id, viewerID string) (*model.Book, error)
	createFn    func(ctx context.Context, b *model.Book) error
	updateFn    func(ctx context.Context, id string, fn func(b *model.Book) error) (*model.Book, error)
	deleteFn    func(ctx context.Context, id string) error
	countFn     func(ctx context.Context, bookID string) (int, error)
	addReviewFn func(ctx context.Context, bookID string, rv *model.Review) (float64, error)
}

var _ bookrepo.Repo = (*repoMock)(nil)

func (m *repoMock) List(ctx context.Context, q model.BookQuery, p pagination.Params, viewerID string) ([]model.Book, int64, error) {
	return m.listFn(ctx, q, p, viewerID)
}
func (m *repoMock) Get(ctx context.Context, id, viewerID string) (*model.Book, error) {
	return m.getFn(ctx, id, viewerID)
}
func (m *repoMock) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *repoMock) Update(ctx context.Context, id string, fn func(b *model.Book) error) (*model.Book, error) {
	return m.updateFn(ctx, id, fn)
}
func (m *repoMock) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }
func (m *repoMock) CountActiveRequests(ctx context.Context, bookID string) (int, error) {
	return m.countFn(ctx, bookID)
}
func (m *repoMock) AddReview(ctx context.Context, bookID string, rv *model.Review) (float64, error) {
	return m.addReviewFn(ctx, bookID, rv)
}

type imagesMock struct {
	saved   []string
	removed []string
	fail    bool
}

func (i *imagesMock) Save(r io.Reader, folder string) (string, error) {
	if i.fail {
		return "", errors.New("decode")
	}
	p := "/uploads/" + folder + "/" + uuid.NewString() + ".jpg"
	i.saved = append(i.saved, p)
	return p, nil
}

func (i *imagesMock) Remove(p string) error {
	i.removed = append(i.removed, p)
	return nil
}

func validInput() model.BookInput {
	return model.BookInput{
		Title:           " Dune ",
		Author:          "Frank Herbert",
		Category:        "Science Fiction",
		PublicationYear: 1965,
		ISBN:            "978-0-441-17271-9",
		Price:           20,
		TotalCopies:     3,
	}
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(&repoMock{}, nil)
	ctx := context.Background()

	in := validInput()
	in.Category = "Poetry"
	_, err := s.Create(ctx, in, nil)
	require.Equal(t, booksvc.ErrInvalidCategory, booksvc.Code(err))

	in = validInput()
	in.ISBN = "12345"
	_, err = s.Create(ctx, in, nil)
	require.Equal(t, booksvc.ErrInvalidISBN, booksvc.Code(err))

	in = validInput()
	in.TotalCopies = 0
	_, err = s.Create(ctx, in, nil)
	require.Equal(t, booksvc.ErrInvalidCopies, booksvc.Code(err))
}

func TestCreate_Success(t *testing.T) {
	imgs := &imagesMock{}
	m := &repoMock{
		createFn: func(ctx context.Context, b *model.Book) error {
			require.Equal(t, "Dune", b.Title)
			require.Equal(t, "9780441172719", b.ISBN)
			require.Equal(t, 3, b.AvailableCopies)
			return nil
		},
	}
	s := booksvc.New(m, imgs)

	b, err := s.Create(context.Background(), validInput(), strings.NewReader("img"))
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)
	require.Len(t, imgs.saved, 1)
	require.Equal(t, imgs.saved[0], b.Image)
	require.False(t, b.IsFavorite)
}

func TestCreate_RepoErrorRemovesImage(t *testing.T) {
	imgs := &imagesMock{}
	m := &repoMock{createFn: func(ctx context.Context, b *model.Book) error { return errors.New("boom") }}
	s := booksvc.New(m, imgs)

	_, err := s.Create(context.Background(), validInput(), strings.NewReader("img"))
	require.Error(t, err)
	require.Equal(t, imgs.saved, imgs.removed)
}

func TestCreate_BadImage(t *testing.T) {
	s := booksvc.New(&repoMock{}, &imagesMock{fail: true})
	_, err := s.Create(context.Background(), validInput(), strings.NewReader("junk"))
	require.Equal(t, booksvc.ErrInvalidImage, booksvc.Code(err))
}

func updateWith(stored model.Book) func(ctx context.Context, id string, fn func(b *model.Book) error) (*model.Book, error) {
	return func(ctx context.Context, id string, fn func(b *model.Book) error) (*model.Book, error) {
		b := stored
		if err := fn(&b); err != nil {
			return nil, err
		}
		return &b, nil
	}
}

func TestUpdate_CopiesDelta(t *testing.T) {
	stored := model.Book{ID: uuid.NewString(), TotalCopies: 3, AvailableCopies: 1, Image: "/uploads/books/old.jpg"}
	imgs := &imagesMock{}
	s := booksvc.New(&repoMock{updateFn: updateWith(stored)}, imgs)
	ctx := context.Background()

	in := validInput()
	in.TotalCopies = 5
	b, err := s.Update(ctx, stored.ID, in, nil)
	require.NoError(t, err)
	require.Equal(t, 5, b.TotalCopies)
	require.Equal(t, 3, b.AvailableCopies)
	require.Equal(t, "/uploads/books/old.jpg", b.Image)

	// two copies are out; shrinking below that is refused
	in.TotalCopies = 1
	_, err = s.Update(ctx, stored.ID, in, nil)
	require.Equal(t, booksvc.ErrInvalidCopies, booksvc.Code(err))

	in.TotalCopies = 2
	b, err = s.Update(ctx, stored.ID, in, strings.NewReader("img"))
	require.NoError(t, err)
	require.Equal(t, 0, b.AvailableCopies)
	require.Equal(t, imgs.saved[0], b.Image)
	require.Equal(t, []string{"/uploads/books/old.jpg"}, imgs.removed)
}

func TestUpdate_NotFound(t *testing.T) {
	m := &repoMock{
		updateFn: func(ctx context.Context, id string, fn func(b *model.Book) error) (*model.Book, error) {
			return nil, bookrepo.ErrNotFound
		},
	}
	s := booksvc.New(m, nil)

	_, err := s.Update(context.Background(), uuid.NewString(), validInput(), nil)
	require.Equal(t, booksvc.ErrNotFound, booksvc.Code(err))
	_, err = s.Update(context.Background(), "42", validInput(), nil)
	require.Equal(t, booksvc.ErrNotFound, booksvc.Code(err))
}

func TestDelete_RefusedWithActiveRequests(t *testing.T) {
	deleted := false
	active := 1
	m := &repoMock{
		countFn:  func(ctx context.Context, bookID string) (int, error) { return active, nil },
		deleteFn: func(ctx context.Context, id string) error { deleted = true; return nil },
	}
	s := booksvc.New(m, nil)
	id := uuid.NewString()

	err := s.Delete(context.Background(), id)
	require.Equal(t, booksvc.ErrHasActive, booksvc.Code(err))
	require.False(t, deleted)

	active = 0
	require.NoError(t, s.Delete(context.Background(), id))
	require.True(t, deleted)
}

func TestAddReview(t *testing.T) {
	m := &repoMock{
		addReviewFn: func(ctx context.Context, bookID string, rv *model.Review) (float64, error) {
			require.Equal(t, "u1", rv.User.ID)
			require.Equal(t, "great", rv.Comment)
			return model.MeanRating([]int{4, 5, rv.Rating}), nil
		},
	}
	s := booksvc.New(m, nil)
	ctx := context.Background()

	rv, mean, err := s.AddReview(ctx, uuid.NewString(), "u1", 3, " great ")
	require.NoError(t, err)
	require.Equal(t, 3, rv.Rating)
	require.Equal(t, 4.0, mean)

	_, _, err = s.AddReview(ctx, uuid.NewString(), "u1", 6, "")
	require.Equal(t, booksvc.ErrInvalidRating, booksvc.Code(err))
	_, _, err = s.AddReview(ctx, uuid.NewString(), "u1", 0, "")
	require.Equal(t, booksvc.ErrInvalidRating, booksvc.Code(err))
}

func TestList_PassesViewerAndPaging(t *testing.T) {
	m := &repoMock{
		listFn: func(ctx context.Context, q model.BookQuery, p pagination.Params, viewerID string) ([]model.Book, int64, error) {
			require.Equal(t, "viewer", viewerID)
			require.Equal(t, pagination.Params{Page: 2, Limit: 10}, p)
			return []model.Book{{ID: "a", IsFavorite: true}}, 11, nil
		},
	}
	s := booksvc.New(m, nil)

	page, err := s.List(context.Background(), model.BookQuery{Page: 2, Sort: model.SortPriceAsc}, "viewer")
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalPages)
	require.True(t, page.Items[0].IsFavorite)

	_, err = s.List(context.Background(), model.BookQuery{Sort: "title"}, "")
	require.Equal(t, booksvc.ErrInvalidSort, booksvc.Code(err))
}
