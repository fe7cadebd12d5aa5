package store

import (
	"context"
	"log/slog"
	"sync"

	"librarydesk/client/api"
	"librarydesk/model"
)

type UserAPI interface {
	ListUsers(ctx context.Context, q model.UserQuery) (*api.Page[model.User], error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUserRole(ctx context.Context, id string, role model.Role) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

const slotUsers = "users"

// UserStore backs the admin user list. Pages after the first are appended so
// the list can grow under an InfiniteLoader.
type UserStore struct {
	api UserAPI
	seq Sequencer
	log *slog.Logger

	mu      sync.Mutex
	users   []model.User
	current *model.User
	page    Pagination
	loading bool
	err     error
}

func NewUserStore(a UserAPI, log *slog.Logger) *UserStore {
	if log == nil {
		log = slog.Default()
	}
	return &UserStore{api: a, log: log}
}

// List loads q.Page; page 1 (or 0) replaces the list, later pages append.
func (s *UserStore) List(ctx context.Context, q model.UserQuery) error {
	t := s.seq.Next(slotUsers)
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	page, err := s.api.ListUsers(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(t) {
		return ErrStale
	}
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	if q.Page > 1 {
		s.users = appendNew(s.users, page.Items)
	} else {
		s.users = page.Items
	}
	s.page = Pagination{Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages, Total: page.Total}
	return nil
}

// LoadPage adapts List for an InfiniteLoader.
func (s *UserStore) LoadPage(q model.UserQuery) func(ctx context.Context, page int) (int, error) {
	return func(ctx context.Context, page int) (int, error) {
		q.Page = page
		if err := s.List(ctx, q); err != nil {
			return 0, err
		}
		return s.Pagination().TotalPages, nil
	}
}

func (s *UserStore) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.api.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
	return u, nil
}

func (s *UserStore) UpdateRole(ctx context.Context, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, api.Invalid("INVALID_ROLE", "role must be user or admin")
	}
	u, err := s.api.UpdateUserRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].Role = u.Role
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current = u
	}
	return u, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.users[:0:0]
	for _, u := range s.users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	s.users = kept
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	return nil
}

func (s *UserStore) Users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.User(nil), s.users...)
}

func (s *UserStore) Current() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *UserStore) Pagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *UserStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *UserStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// appendNew skips rows already present, which happens when the list shifted
// between page loads.
func appendNew(have, more []model.User) []model.User {
	seen := make(map[string]struct{}, len(have))
	for _, u := range have {
		seen[u.ID] = struct{}{}
	}
	for _, u := range more {
		if _, ok := seen[u.ID]; !ok {
			have = append(have, u)
		}
	}
	return have
}
