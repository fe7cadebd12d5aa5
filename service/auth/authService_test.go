package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"librarydesk/model"
	authrepo "librarydesk/repository/auth"
	userrepo "librarydesk/repository/user"
	"librarydesk/util/hash"
	jwtutil "librarydesk/util/jwt"
)

type mockRepo struct {
	byEmailFn        func(ctx context.Context, email string) (*model.User, error)
	byIDFn           func(ctx context.Context, id string) (*model.User, error)
	createFn         func(ctx context.Context, u *model.User) error
	updateDetailsFn  func(ctx context.Context, u *model.User) error
	updatePasswordFn func(ctx context.Context, id, hash string) error
	saveTokenFn      func(ctx context.Context, userID, tokenHash string, expires time.Time) error
	consumeTokenFn   func(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

var _ authrepo.Repo = (*mockRepo)(nil)

func (m *mockRepo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.byEmailFn == nil {
		return nil, authrepo.ErrNotFound
	}
	return m.byEmailFn(ctx, email)
}

func (m *mockRepo) ByID(ctx context.Context, id string) (*model.User, error) {
	return m.byIDFn(ctx, id)
}

func (m *mockRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, u)
}

func (m *mockRepo) UpdateDetails(ctx context.Context, u *model.User) error {
	return m.updateDetailsFn(ctx, u)
}

func (m *mockRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.updatePasswordFn(ctx, id, hash)
}

func (m *mockRepo) SaveResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	return m.saveTokenFn(ctx, userID, tokenHash, expires)
}

func (m *mockRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	return m.consumeTokenFn(ctx, tokenHash, now)
}

// profiles answers Get with a stored user; the rest is unused here.
type profiles struct {
	userrepo.Repo
	byID map[string]model.User
}

func (p *profiles) Get(ctx context.Context, id string) (*model.User, error) {
	u, ok := p.byID[id]
	if !ok {
		return nil, userrepo.ErrNotFound
	}
	return &u, nil
}

type mailMock struct{ email, token string }

func (m *mailMock) SendReset(ctx context.Context, email, token string) error {
	m.email, m.token = email, token
	return nil
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := hash.HashPassword(plain)
	require.NoError(t, err)
	return h
}

const secret = "test-secret"

// --- tests ---

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	p := &profiles{byID: map[string]model.User{}}
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			p.byID[u.ID] = *u
			return nil
		},
	}
	svc := New(m, p, &mailMock{}, secret, time.Hour)

	u, tok, err := svc.Register(ctx, model.RegisterReq{
		FullName:    "Ana Lima",
		Email:       "ANA@Example.COM",
		Password:    "supersecret",
		DateOfBirth: "1990-05-01",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, "ana@example.com", u.Email)
	require.Equal(t, model.RoleUser, u.Role)
	require.NotNil(t, u.DateOfBirth)

	claims, err := jwtutil.ParseAuth("Bearer "+tok, secret)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)
	require.Equal(t, "user", claims.Role)
}

func TestRegister_BadInput(t *testing.T) {
	svc := New(&mockRepo{}, &profiles{}, &mailMock{}, secret, time.Hour)

	_, _, err := svc.Register(context.Background(), model.RegisterReq{FullName: "A", Email: " ", Password: "123"})
	require.Equal(t, ErrBadInput, Code(err))

	_, _, err = svc.Register(context.Background(), model.RegisterReq{
		FullName: "A", Email: "a@b.co", Password: "123456", DateOfBirth: "01/02/1990",
	})
	require.Equal(t, ErrBadInput, Code(err))
}

func TestRegister_EmailTaken(t *testing.T) {
	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "9", Email: email}, nil
		},
	}
	svc := New(m, &profiles{}, &mailMock{}, secret, time.Hour)

	_, _, err := svc.Register(context.Background(), model.RegisterReq{
		FullName: "A", Email: "taken@example.com", Password: "123456",
	})
	require.Equal(t, ErrEmailTaken, Code(err))

	// a racing insert is caught by the unique index
	m.byEmailFn = nil
	m.createFn = func(ctx context.Context, u *model.User) error { return authrepo.ErrEmailTaken }
	_, _, err = svc.Register(context.Background(), model.RegisterReq{
		FullName: "A", Email: "taken@example.com", Password: "123456",
	})
	require.Equal(t, ErrEmailTaken, Code(err))
}

func TestRegister_CreateError(t *testing.T) {
	m := &mockRepo{
		createFn: func(ctx context.Context, u *model.User) error { return errors.New("db down") },
	}
	svc := New(m, &profiles{}, &mailMock{}, secret, time.Hour)

	_, _, err := svc.Register(context.Background(), model.RegisterReq{
		FullName: "A", Email: "ok@example.com", Password: "123456",
	})
	require.Error(t, err)
	require.Equal(t, ErrCode(""), Code(err))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	stored := model.User{ID: "7", Email: "user@example.com", Role: model.RoleAdmin, PasswordHash: mustHash(t, "supersecret")}
	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email != stored.Email {
				return nil, authrepo.ErrNotFound
			}
			u := stored
			return &u, nil
		},
	}
	svc := New(m, &profiles{byID: map[string]model.User{"7": stored}}, &mailMock{}, secret, time.Hour)

	u, tok, err := svc.Login(ctx, model.LoginReq{Email: "User@Example.com", Password: "supersecret"})
	require.NoError(t, err)
	require.Equal(t, "7", u.ID)
	claims, err := jwtutil.ParseAuth(tok, secret)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)

	_, _, err = svc.Login(ctx, model.LoginReq{Email: "user@example.com", Password: "wrong"})
	require.Equal(t, ErrInvalidCreds, Code(err))

	_, _, err = svc.Login(ctx, model.LoginReq{Email: "missing@example.com", Password: "whatever"})
	require.Equal(t, ErrInvalidCreds, Code(err))

	_, _, err = svc.Login(ctx, model.LoginReq{Email: " ", Password: ""})
	require.Equal(t, ErrBadInput, Code(err))
}

func TestUpdatePassword(t *testing.T) {
	stored := model.User{ID: "7", Email: "a@b.co", Role: model.RoleUser, PasswordHash: mustHash(t, "oldpass")}
	var newHash string
	m := &mockRepo{
		byIDFn: func(ctx context.Context, id string) (*model.User, error) {
			u := stored
			return &u, nil
		},
		updatePasswordFn: func(ctx context.Context, id, h string) error {
			newHash = h
			return nil
		},
	}
	svc := New(m, &profiles{byID: map[string]model.User{"7": stored}}, &mailMock{}, secret, time.Hour)

	_, _, err := svc.UpdatePassword(context.Background(), "7", model.UpdatePasswordReq{CurrentPassword: "nope", NewPassword: "newpass"})
	require.Equal(t, ErrWrongPassword, Code(err))
	require.Empty(t, newHash)

	_, tok, err := svc.UpdatePassword(context.Background(), "7", model.UpdatePasswordReq{CurrentPassword: "oldpass", NewPassword: "newpass"})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.True(t, hash.Check(newHash, "newpass"))
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	stored := model.User{ID: "7", Email: "a@b.co", Role: model.RoleUser}
	tokens := map[string]time.Time{}
	var newHash string
	m := &mockRepo{
		byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email != stored.Email {
				return nil, authrepo.ErrNotFound
			}
			u := stored
			return &u, nil
		},
		saveTokenFn: func(ctx context.Context, userID, tokenHash string, expires time.Time) error {
			tokens[tokenHash] = expires
			return nil
		},
		consumeTokenFn: func(ctx context.Context, tokenHash string, now time.Time) (string, error) {
			exp, ok := tokens[tokenHash]
			delete(tokens, tokenHash)
			if !ok || !exp.After(now) {
				return "", authrepo.ErrTokenGone
			}
			return stored.ID, nil
		},
		updatePasswordFn: func(ctx context.Context, id, h string) error {
			newHash = h
			return nil
		},
	}
	mail := &mailMock{}
	svc := New(m, &profiles{byID: map[string]model.User{"7": stored}}, mail, secret, time.Hour)

	// unknown address is not revealed
	require.NoError(t, svc.ForgotPassword(ctx, "ghost@b.co"))
	require.Empty(t, mail.token)

	require.NoError(t, svc.ForgotPassword(ctx, "A@B.co"))
	require.NotEmpty(t, mail.token)
	require.Len(t, tokens, 1)
	for h := range tokens {
		require.NotEqual(t, mail.token, h)
	}

	u, tok, err := svc.ResetPassword(ctx, mail.token, "brandnew")
	require.NoError(t, err)
	require.Equal(t, "7", u.ID)
	require.NotEmpty(t, tok)
	require.True(t, hash.Check(newHash, "brandnew"))

	// tokens are single use
	_, _, err = svc.ResetPassword(ctx, mail.token, "brandnew")
	require.Equal(t, ErrTokenInvalid, Code(err))
}

func TestCodeExtractor(t *testing.T) {
	require.Equal(t, ErrEmailTaken, Code(wrap(ErrEmailTaken, "x")))
	require.Equal(t, "x", wrap(ErrEmailTaken, "x").Error())
	require.Equal(t, ErrCode(""), Code(errors.New("plain")))
}
