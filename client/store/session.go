package store

import (
	"context"
	"log/slog"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"librarydesk/client/api"
	"librarydesk/model"
)

const authKey = "authState"

// LoginRoute is where a successful password reset sends the user.
const LoginRoute = "/login"

type AuthAPI interface {
	Register(ctx context.Context, in model.RegisterReq) (*api.Session, error)
	Login(ctx context.Context, in model.LoginReq) (*api.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*model.User, error)
	UpdateDetails(ctx context.Context, in model.UpdateDetailsReq) (*model.User, error)
	UpdatePassword(ctx context.Context, in model.UpdatePasswordReq) (*api.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) (*api.Session, error)
	SetToken(token string)
}

// AuthState is the persisted snapshot.
type AuthState struct {
	User            *model.User `json:"user"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	Token           string      `json:"token,omitempty"`
}

// Session owns the signed-in user and keeps it in Storage across restarts.
type Session struct {
	api  AuthAPI
	st   Storage
	favs *FavoriteSet
	log  *slog.Logger

	mu    sync.Mutex
	state AuthState
}

// NewSession rehydrates from st. An unreadable snapshot is discarded.
func NewSession(a AuthAPI, st Storage, favs *FavoriteSet, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	if favs == nil {
		favs = NewFavoriteSet()
	}
	s := &Session{api: a, st: st, favs: favs, log: log}

	raw, ok, err := st.Get(authKey)
	switch {
	case err != nil:
		log.Warn("reading auth state failed", "err", err)
	case ok:
		var state AuthState
		if err := jsoniter.Unmarshal(raw, &state); err != nil || (state.IsAuthenticated && state.User == nil) {
			log.Warn("discarding corrupt auth state", "err", err)
			_ = st.Delete(authKey)
			break
		}
		s.state = state
		a.SetToken(state.Token)
		favs.Replace(state.User)
	}
	return s
}

func (s *Session) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Session) User() *model.User { return s.State().User }

func (s *Session) IsAuthenticated() bool { return s.State().IsAuthenticated }

func (s *Session) IsAdmin() bool {
	u := s.User()
	return u != nil && u.Role == model.RoleAdmin
}

func (s *Session) Favorites() *FavoriteSet { return s.favs }

func (s *Session) Register(ctx context.Context, in model.RegisterReq) (*model.User, error) {
	out, err := s.api.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	s.signIn(out.User, out.Token)
	return &out.User, nil
}

func (s *Session) Login(ctx context.Context, in model.LoginReq) (*model.User, error) {
	out, err := s.api.Login(ctx, in)
	if err != nil {
		return nil, err
	}
	s.signIn(out.User, out.Token)
	return &out.User, nil
}

// Logout clears local state even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	s.Clear()
	return err
}

// Refresh reloads the signed-in user from the server.
func (s *Session) Refresh(ctx context.Context) (*model.User, error) {
	u, err := s.api.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.setUser(*u)
	return u, nil
}

func (s *Session) UpdateDetails(ctx context.Context, in model.UpdateDetailsReq) (*model.User, error) {
	u, err := s.api.UpdateDetails(ctx, in)
	if err != nil {
		return nil, err
	}
	s.setUser(*u)
	return u, nil
}

func (s *Session) UpdatePassword(ctx context.Context, in model.UpdatePasswordReq) (*model.User, error) {
	out, err := s.api.UpdatePassword(ctx, in)
	if err != nil {
		return nil, err
	}
	s.signIn(out.User, out.Token)
	return &out.User, nil
}

func (s *Session) ForgotPassword(ctx context.Context, email string) error {
	return s.api.ForgotPassword(ctx, email)
}

// ResetPassword waits for the reset to succeed and returns the route to go
// to next. The token issued by the reset is not kept; the user signs in
// again with the new password.
func (s *Session) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if _, err := s.api.ResetPassword(ctx, token, password); err != nil {
		return "", err
	}
	s.api.SetToken(s.State().Token)
	return LoginRoute, nil
}

// Clear drops the session and its persisted snapshot. It is also the handler
// for a 401 from any call.
func (s *Session) Clear() {
	s.mu.Lock()
	s.state = AuthState{}
	s.mu.Unlock()
	s.api.SetToken("")
	s.favs.Clear()
	if err := s.st.Delete(authKey); err != nil {
		s.log.Warn("clearing auth state failed", "err", err)
	}
}

// ApplyUser stores an authoritative user record returned by another endpoint,
// such as the favorite toggles, in the persisted snapshot and the favorite
// set. It is ignored when signed out or when u is a different user.
func (s *Session) ApplyUser(u *model.User) {
	if u == nil {
		return
	}
	s.mu.Lock()
	if !s.state.IsAuthenticated || (s.state.User != nil && s.state.User.ID != u.ID) {
		s.mu.Unlock()
		s.log.Debug("ignoring user record for inactive session", "user", u.ID)
		return
	}
	cp := *u
	s.state.User = &cp
	s.persistLocked()
	s.mu.Unlock()
	s.favs.Replace(&cp)
}

func (s *Session) signIn(u model.User, token string) {
	s.mu.Lock()
	s.state = AuthState{User: &u, IsAuthenticated: true, Token: token}
	s.persistLocked()
	s.mu.Unlock()
	s.favs.Replace(&u)
}

func (s *Session) setUser(u model.User) {
	s.mu.Lock()
	s.state.User = &u
	s.state.IsAuthenticated = true
	s.persistLocked()
	s.mu.Unlock()
	s.favs.Replace(&u)
}

func (s *Session) persistLocked() {
	raw, err := jsoniter.Marshal(s.state)
	if err != nil {
		s.log.Error("encoding auth state failed", "err", err)
		return
	}
	if err := s.st.Set(authKey, raw); err != nil {
		s.log.Warn("persisting auth state failed", "err", err)
	}
}
