package usersvc

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"librarydesk/model"
	userrepo "librarydesk/repository/user"
	"librarydesk/util/pagination"
)

type ErrCode string

const (
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrBookNotFound ErrCode = "BOOK_NOT_FOUND"
	ErrInvalidRole  ErrCode = "INVALID_ROLE"
	ErrSelfAction   ErrCode = "SELF_ACTION"
	ErrHasActive    ErrCode = "HAS_ACTIVE_REQUESTS"
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
	Items      []model.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type Service interface {
	List(ctx context.Context, q model.UserQuery) (*Page, error)
	Get(ctx context.Context, id string) (*model.User, error)
	UpdateRole(ctx context.Context, actorID, id string, role model.Role) (*model.User, error)
	Delete(ctx context.Context, actorID, id string) error

	// AddFavorite and RemoveFavorite are idempotent and return the full user.
	AddFavorite(ctx context.Context, userID, bookID string) (*model.User, error)
	RemoveFavorite(ctx context.Context, userID, bookID string) (*model.User, error)
}

type service struct{ r userrepo.Repo }

func New(r userrepo.Repo) Service { return &service{r: r} }

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *service) List(ctx context.Context, q model.UserQuery) (*Page, error) {
	if q.Role != "" && !model.Role(q.Role).Valid() {
		return nil, makeErr(ErrInvalidRole)
	}
	p := pagination.Users.Normalize(q.Page, q.Limit)
	items, total, err := s.r.List(ctx, q, p)
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

func (s *service) Get(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, makeErr(ErrNotFound)
	}
	u, err := s.r.Get(ctx, id)
	if errors.Is(err, userrepo.ErrNotFound) {
		return nil, makeErr(ErrNotFound)
	}
	return u, err
}

func (s *service) UpdateRole(ctx context.Context, actorID, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, makeErr(ErrInvalidRole)
	}
	if !validID(id) {
		return nil, makeErr(ErrNotFound)
	}
	if actorID == id && role != model.RoleAdmin {
		return nil, makeErr(ErrSelfAction)
	}
	if err := s.r.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actorID, id string) error {
	if !validID(id) {
		return makeErr(ErrNotFound)
	}
	if actorID == id {
		return makeErr(ErrSelfAction)
	}
	n, err := s.r.CountActiveRequests(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return makeErr(ErrHasActive)
	}
	if err := s.r.Delete(ctx, id); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return makeErr(ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *service) AddFavorite(ctx context.Context, userID, bookID string) (*model.User, error) {
	if !validID(bookID) {
		return nil, makeErr(ErrBookNotFound)
	}
	if err := s.r.AddFavorite(ctx, userID, bookID); err != nil {
		if errors.Is(err, userrepo.ErrBookNotFound) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveFavorite(ctx context.Context, userID, bookID string) (*model.User, error) {
	if !validID(bookID) {
		return nil, makeErr(ErrBookNotFound)
	}
	if err := s.r.RemoveFavorite(ctx, userID, bookID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
