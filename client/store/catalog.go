package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"librarydesk/client/api"
	"librarydesk/model"
)

// ErrToggleInFlight rejects a favorite toggle while another toggle for the
// same book has not completed.
var ErrToggleInFlight = errors.New("store: favorite toggle already in flight for this book")

type CatalogAPI interface {
	ListBooks(ctx context.Context, q model.BookQuery) (*api.Page[model.Book], error)
	GetBook(ctx context.Context, id string) (*model.Book, error)
	CreateBook(ctx context.Context, in model.BookInput, img *api.Upload) (*model.Book, error)
	UpdateBook(ctx context.Context, id string, in model.BookInput, img *api.Upload) (*model.Book, error)
	DeleteBook(ctx context.Context, id string) error
	AddReview(ctx context.Context, bookID string, rating int, comment string) (*api.ReviewResult, error)
	AddFavorite(ctx context.Context, bookID string) (*model.User, error)
	RemoveFavorite(ctx context.Context, bookID string) (*model.User, error)
}

type Pagination struct {
	Page       int
	Limit      int
	TotalPages int
	Total      int64
}

const (
	slotBookList   = "books"
	slotBookDetail = "book"
)

// CatalogStore caches one page of books and the book being viewed.
type CatalogStore struct {
	api  CatalogAPI
	favs *FavoriteSet
	seq  Sequencer
	log  *slog.Logger

	mu            sync.Mutex
	books         []model.Book
	current       *model.Book
	page          Pagination
	loading       bool
	err           error
	detailLoading bool
	detailErr     error
	toggling      map[string]bool
	favSent       uint64
	favApplied    uint64
	onUser        func(u *model.User)
}

func NewCatalog(a CatalogAPI, favs *FavoriteSet, log *slog.Logger) *CatalogStore {
	if log == nil {
		log = slog.Default()
	}
	if favs == nil {
		favs = NewFavoriteSet()
	}
	return &CatalogStore{
		api:      a,
		favs:     favs,
		log:      log,
		page:     Pagination{Page: 1, Limit: 10},
		toggling: map[string]bool{},
	}
}

// List fetches a page. On failure the previous page stays in place and Err
// reports the failure. A response overtaken by a newer List returns ErrStale.
func (s *CatalogStore) List(ctx context.Context, q model.BookQuery) error {
	t := s.seq.Next(slotBookList)
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	page, err := s.api.ListBooks(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(t) {
		s.log.Debug("dropping stale book page", "page", q.Page, "search", q.Search)
		return ErrStale
	}
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	s.books = page.Items
	s.page = Pagination{Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages, Total: page.Total}
	return nil
}

// OnUser routes the user record returned by the favorite endpoints to fn
// instead of replacing the favorite set directly. Session.ApplyUser is the
// usual sink, so the persisted user and the set move together.
func (s *CatalogStore) OnUser(fn func(u *model.User)) {
	s.mu.Lock()
	s.onUser = fn
	s.mu.Unlock()
}

// Get loads one book into the detail slot. Its loading and error state is
// kept apart from the list's.
func (s *CatalogStore) Get(ctx context.Context, id string) (*model.Book, error) {
	t := s.seq.Next(slotBookDetail)
	s.mu.Lock()
	s.detailLoading = true
	s.detailErr = nil
	s.mu.Unlock()

	b, err := s.api.GetBook(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(t) {
		return nil, ErrStale
	}
	s.detailLoading = false
	if err != nil {
		s.detailErr = err
		return nil, err
	}
	s.current = b
	return s.view(*b), nil
}

func (s *CatalogStore) Create(ctx context.Context, in model.BookInput, img *api.Upload) (*model.Book, error) {
	b, err := s.api.CreateBook(ctx, in, img)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = append(s.books, *b)
	return s.view(*b), nil
}

// Update writes the server's copy through to the list and the detail slot.
func (s *CatalogStore) Update(ctx context.Context, id string, in model.BookInput, img *api.Upload) (*model.Book, error) {
	b, err := s.api.UpdateBook(ctx, id, in, img)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(*b)
	return s.view(*b), nil
}

// Remove deletes a book. Pagination counts are left for the next List.
func (s *CatalogStore) Remove(ctx context.Context, id string) error {
	if err := s.api.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.books[:0:0]
	for _, b := range s.books {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	s.books = kept
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	return nil
}

// ToggleFavorite flips the favorite state of bookID and returns the new state.
// Toggles on different books may overlap. A response is applied only when its
// toggle was sent after the one whose response was applied last; an older
// response returns ErrStale.
func (s *CatalogStore) ToggleFavorite(ctx context.Context, bookID string) (bool, error) {
	s.mu.Lock()
	if s.toggling[bookID] {
		s.mu.Unlock()
		return s.favs.Has(bookID), ErrToggleInFlight
	}
	s.toggling[bookID] = true
	s.favSent++
	n := s.favSent
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.toggling, bookID)
		s.mu.Unlock()
	}()

	var (
		u   *model.User
		err error
	)
	if s.favs.Has(bookID) {
		u, err = s.api.RemoveFavorite(ctx, bookID)
	} else {
		u, err = s.api.AddFavorite(ctx, bookID)
	}
	if err != nil {
		return s.favs.Has(bookID), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n < s.favApplied {
		s.log.Debug("dropping stale favorites", "book", bookID)
		return s.favs.Has(bookID), ErrStale
	}
	s.favApplied = n
	if s.onUser != nil {
		s.onUser(u)
	} else {
		s.favs.Replace(u)
	}
	return s.favs.Has(bookID), nil
}

// AddReview appends the created review to the viewed book and recomputes its
// mean rating. Ratings outside 1..5 never reach the server.
func (s *CatalogStore) AddReview(ctx context.Context, bookID string, rating int, comment string) (*model.Review, error) {
	if !model.ValidRating(rating) {
		return nil, api.Invalid("INVALID_RATING", "rating must be between 1 and 5")
	}
	res, err := s.api.AddReview(ctx, bookID, rating, comment)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ratings := res.Ratings
	if s.current != nil && s.current.ID == bookID {
		s.current.Reviews = append(s.current.Reviews, res.Review)
		ratings = meanOf(s.current.Reviews)
		s.current.Ratings = ratings
	}
	for i := range s.books {
		if s.books[i].ID == bookID {
			s.books[i].Ratings = ratings
		}
	}
	rv := res.Review
	return &rv, nil
}

// Books returns the cached page with isFavorite derived from the favorite set.
func (s *CatalogStore) Books() []model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Book, len(s.books))
	for i, b := range s.books {
		out[i] = *s.view(b)
	}
	return out
}

func (s *CatalogStore) Current() *model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.view(*s.current)
}

func (s *CatalogStore) Pagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *CatalogStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *CatalogStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *CatalogStore) DetailLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailLoading
}

// DetailErr reports the last failed Get.
func (s *CatalogStore) DetailErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailErr
}

// ClearCurrent empties the detail slot.
func (s *CatalogStore) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *CatalogStore) replace(b model.Book) {
	for i := range s.books {
		if s.books[i].ID == b.ID {
			s.books[i] = b
		}
	}
	if s.current != nil && s.current.ID == b.ID {
		cp := b
		s.current = &cp
	}
}

// view copies b and overlays the viewer's favorite flag.
func (s *CatalogStore) view(b model.Book) *model.Book {
	b.IsFavorite = s.favs.Has(b.ID)
	if b.Reviews != nil {
		b.Reviews = append([]model.Review(nil), b.Reviews...)
	}
	return &b
}

func meanOf(reviews []model.Review) float64 {
	rs := make([]int, len(reviews))
	for i, r := range reviews {
		rs[i] = r.Rating
	}
	return model.MeanRating(rs)
}
