package store

import (
	"context"
	"time"

	"librarydesk/client/api"
	"librarydesk/model"
)

type catalogMock struct {
	ListBooksFn      func(ctx context.Context, q model.BookQuery) (*api.Page[model.Book], error)
	GetBookFn        func(ctx context.Context, id string) (*model.Book, error)
	CreateBookFn     func(ctx context.Context, in model.BookInput, img *api.Upload) (*model.Book, error)
	UpdateBookFn     func(ctx context.Context, id string, in model.BookInput, img *api.Upload) (*model.Book, error)
	DeleteBookFn     func(ctx context.Context, id string) error
	AddReviewFn      func(ctx context.Context, bookID string, rating int, comment string) (*api.ReviewResult, error)
	AddFavoriteFn    func(ctx context.Context, bookID string) (*model.User, error)
	RemoveFavoriteFn func(ctx context.Context, bookID string) (*model.User, error)
}

func (m *catalogMock) ListBooks(ctx context.Context, q model.BookQuery) (*api.Page[model.Book], error) {
	return m.ListBooksFn(ctx, q)
}
func (m *catalogMock) GetBook(ctx context.Context, id string) (*model.Book, error) {
	return m.GetBookFn(ctx, id)
}
func (m *catalogMock) CreateBook(ctx context.Context, in model.BookInput, img *api.Upload) (*model.Book, error) {
	return m.CreateBookFn(ctx, in, img)
}
func (m *catalogMock) UpdateBook(ctx context.Context, id string, in model.BookInput, img *api.Upload) (*model.Book, error) {
	return m.UpdateBookFn(ctx, id, in, img)
}
func (m *catalogMock) DeleteBook(ctx context.Context, id string) error {
	return m.DeleteBookFn(ctx, id)
}
func (m *catalogMock) AddReview(ctx context.Context, bookID string, rating int, comment string) (*api.ReviewResult, error) {
	return m.AddReviewFn(ctx, bookID, rating, comment)
}
func (m *catalogMock) AddFavorite(ctx context.Context, bookID string) (*model.User, error) {
	return m.AddFavoriteFn(ctx, bookID)
}
func (m *catalogMock) RemoveFavorite(ctx context.Context, bookID string) (*model.User, error) {
	return m.RemoveFavoriteFn(ctx, bookID)
}

type borrowMock struct {
	RequestFn func(ctx context.Context, bookID string, expected time.Time) (*model.BorrowRequest, error)
	ListFn    func(ctx context.Context, q model.BorrowQuery) (*api.Page[model.BorrowRequest], error)
	MineFn    func(ctx context.Context) ([]model.BorrowRequest, error)
	SetFn     func(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error)
	CancelFn  func(ctx context.Context, id string) (*model.BorrowRequest, error)
	ReturnFn  func(ctx context.Context, id string) (*model.BorrowRequest, error)
}

func (m *borrowMock) RequestBorrow(ctx context.Context, bookID string, expected time.Time) (*model.BorrowRequest, error) {
	return m.RequestFn(ctx, bookID, expected)
}
func (m *borrowMock) ListBorrowRequests(ctx context.Context, q model.BorrowQuery) (*api.Page[model.BorrowRequest], error) {
	return m.ListFn(ctx, q)
}
func (m *borrowMock) MyBorrowRequests(ctx context.Context) ([]model.BorrowRequest, error) {
	return m.MineFn(ctx)
}
func (m *borrowMock) SetBorrowStatus(ctx context.Context, id string, status model.BorrowStatus) (*model.BorrowRequest, error) {
	return m.SetFn(ctx, id, status)
}
func (m *borrowMock) CancelBorrow(ctx context.Context, id string) (*model.BorrowRequest, error) {
	return m.CancelFn(ctx, id)
}
func (m *borrowMock) ReturnBorrow(ctx context.Context, id string) (*model.BorrowRequest, error) {
	return m.ReturnFn(ctx, id)
}

type userMock struct {
	ListFn   func(ctx context.Context, q model.UserQuery) (*api.Page[model.User], error)
	GetFn    func(ctx context.Context, id string) (*model.User, error)
	RoleFn   func(ctx context.Context, id string, role model.Role) (*model.User, error)
	DeleteFn func(ctx context.Context, id string) error
}

func (m *userMock) ListUsers(ctx context.Context, q model.UserQuery) (*api.Page[model.User], error) {
	return m.ListFn(ctx, q)
}
func (m *userMock) GetUser(ctx context.Context, id string) (*model.User, error) {
	return m.GetFn(ctx, id)
}
func (m *userMock) UpdateUserRole(ctx context.Context, id string, role model.Role) (*model.User, error) {
	return m.RoleFn(ctx, id, role)
}
func (m *userMock) DeleteUser(ctx context.Context, id string) error {
	return m.DeleteFn(ctx, id)
}

type authMock struct {
	RegisterFn       func(ctx context.Context, in model.RegisterReq) (*api.Session, error)
	LoginFn          func(ctx context.Context, in model.LoginReq) (*api.Session, error)
	LogoutFn         func(ctx context.Context) error
	MeFn             func(ctx context.Context) (*model.User, error)
	UpdateDetailsFn  func(ctx context.Context, in model.UpdateDetailsReq) (*model.User, error)
	UpdatePasswordFn func(ctx context.Context, in model.UpdatePasswordReq) (*api.Session, error)
	ForgotFn         func(ctx context.Context, email string) error
	ResetFn          func(ctx context.Context, token, password string) (*api.Session, error)

	token string
}

func (m *authMock) Register(ctx context.Context, in model.RegisterReq) (*api.Session, error) {
	return m.RegisterFn(ctx, in)
}
func (m *authMock) Login(ctx context.Context, in model.LoginReq) (*api.Session, error) {
	return m.LoginFn(ctx, in)
}
func (m *authMock) Logout(ctx context.Context) error { return m.LogoutFn(ctx) }
func (m *authMock) Me(ctx context.Context) (*model.User, error) {
	return m.MeFn(ctx)
}
func (m *authMock) UpdateDetails(ctx context.Context, in model.UpdateDetailsReq) (*model.User, error) {
	return m.UpdateDetailsFn(ctx, in)
}
func (m *authMock) UpdatePassword(ctx context.Context, in model.UpdatePasswordReq) (*api.Session, error) {
	return m.UpdatePasswordFn(ctx, in)
}
func (m *authMock) ForgotPassword(ctx context.Context, email string) error {
	return m.ForgotFn(ctx, email)
}
func (m *authMock) ResetPassword(ctx context.Context, token, password string) (*api.Session, error) {
	return m.ResetFn(ctx, token, password)
}
func (m *authMock) SetToken(token string) { m.token = token }

func userWithFavorites(ids ...string) *model.User {
	u := &model.User{ID: "u1", FullName: "Ada", Role: model.RoleUser}
	for _, id := range ids {
		u.FavoriteBooks = append(u.FavoriteBooks, model.BookRef{ID: id})
	}
	return u
}

func bookPage(page, totalPages int, ids ...string) *api.Page[model.Book] {
	p := &api.Page[model.Book]{Page: page, Limit: 10, TotalPages: totalPages, Total: int64(totalPages * 10)}
	for _, id := range ids {
		p.Items = append(p.Items, model.Book{ID: id, Title: "Book " + id, TotalCopies: 3, AvailableCopies: 2})
	}
	return p
}

const (
	timeout = time.Second
	tick    = 2 * time.Millisecond
)
