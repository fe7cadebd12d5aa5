package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"librarydesk/model"
	authrepo "librarydesk/repository/auth"
	userrepo "librarydesk/repository/user"
	"librarydesk/util/hash"
	jwtutil "librarydesk/util/jwt"
)

type ErrCode string

const (
	ErrBadInput      ErrCode = "BAD_INPUT"
	ErrEmailTaken    ErrCode = "EMAIL_TAKEN"
	ErrInvalidCreds  ErrCode = "INVALID_CREDENTIALS"
	ErrWrongPassword ErrCode = "WRONG_PASSWORD"
	ErrNotFound      ErrCode = "NOT_FOUND"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func wrap(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

const resetTTL = 10 * time.Minute

// Mailer delivers password reset links.
type Mailer interface {
	SendReset(ctx context.Context, email, token string) error
}

// LogMailer writes the reset link to the log instead of sending mail.
type LogMailer struct {
	Log     *slog.Logger
	BaseURL string
}

func (m LogMailer) SendReset(ctx context.Context, email, token string) error {
	m.Log.InfoContext(ctx, "password reset requested", "email", email,
		"link", strings.TrimRight(m.BaseURL, "/")+"/reset-password/"+token)
	return nil
}

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	UpdateDetails(ctx context.Context, userID string, req model.UpdateDetailsReq) (*model.User, error)
	UpdatePassword(ctx context.Context, userID string, req model.UpdatePasswordReq) (*model.User, string, error)
	// ForgotPassword succeeds for unknown addresses too.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) (*model.User, string, error)
}

type service struct {
	r      authrepo.Repo
	users  userrepo.Repo
	mail   Mailer
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func New(r authrepo.Repo, users userrepo.Repo, mail Mailer, secret string, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &service{r: r, users: users, mail: mail, secret: secret, ttl: ttl, now: time.Now}
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// session loads the full profile and signs a token for it.
func (s *service) session(ctx context.Context, u *model.User) (*model.User, string, error) {
	full, err := s.users.Get(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	token, err := jwtutil.Issue(s.secret, full.ID, string(full.Role), s.ttl)
	if err != nil {
		return nil, "", err
	}
	return full, token, nil
}

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	email := normEmail(req.Email)
	name := strings.TrimSpace(req.FullName)
	if email == "" || name == "" || len(req.Password) < 6 {
		return nil, "", wrap(ErrBadInput, "name, email and a password of at least 6 characters are required")
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, "", wrap(ErrBadInput, "dateOfBirth must be YYYY-MM-DD")
	}

	if existing, err := s.r.ByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", wrap(ErrEmailTaken, "email already registered")
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}
	u := &model.User{
		ID:            uuid.NewString(),
		FullName:      name,
		Email:         email,
		Role:          model.RoleUser,
		PasswordHash:  hashed,
		DateOfBirth:   dob,
		Address:       strings.TrimSpace(req.Address),
		FavoriteBooks: []model.BookRef{},
	}
	if err := s.r.Create(ctx, u); err != nil {
		if errors.Is(err, authrepo.ErrEmailTaken) {
			return nil, "", wrap(ErrEmailTaken, "email already registered")
		}
		return nil, "", err
	}
	return s.session(ctx, u)
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	email := normEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, "", wrap(ErrBadInput, "email and password are required")
	}
	u, err := s.r.ByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, "", wrap(ErrInvalidCreds, "invalid credentials")
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", wrap(ErrInvalidCreds, "invalid credentials")
	}
	return s.session(ctx, u)
}

func (s *service) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return nil, wrap(ErrNotFound, "user not found")
	}
	return u, err
}

func (s *service) UpdateDetails(ctx context.Context, userID string, req model.UpdateDetailsReq) (*model.User, error) {
	u, err := s.r.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, authrepo.ErrNotFound) {
			return nil, wrap(ErrNotFound, "user not found")
		}
		return nil, err
	}
	if v := strings.TrimSpace(req.FullName); v != "" {
		u.FullName = v
	}
	if v := normEmail(req.Email); v != "" {
		u.Email = v
	}
	if req.DateOfBirth != "" {
		dob, err := parseDate(req.DateOfBirth)
		if err != nil {
			return nil, wrap(ErrBadInput, "dateOfBirth must be YYYY-MM-DD")
		}
		u.DateOfBirth = dob
	}
	if req.Address != "" {
		u.Address = strings.TrimSpace(req.Address)
	}
	if err := s.r.UpdateDetails(ctx, u); err != nil {
		if errors.Is(err, authrepo.ErrEmailTaken) {
			return nil, wrap(ErrEmailTaken, "email already registered")
		}
		return nil, err
	}
	return s.Me(ctx, userID)
}

func (s *service) UpdatePassword(ctx context.Context, userID string, req model.UpdatePasswordReq) (*model.User, string, error) {
	if len(req.NewPassword) < 6 {
		return nil, "", wrap(ErrBadInput, "new password must be at least 6 characters")
	}
	u, err := s.r.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, authrepo.ErrNotFound) {
			return nil, "", wrap(ErrNotFound, "user not found")
		}
		return nil, "", err
	}
	if !hash.Check(u.PasswordHash, req.CurrentPassword) {
		return nil, "", wrap(ErrWrongPassword, "password is incorrect")
	}
	hashed, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return nil, "", err
	}
	if err := s.r.UpdatePassword(ctx, u.ID, hashed); err != nil {
		return nil, "", err
	}
	return s.session(ctx, u)
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = normEmail(email)
	if email == "" {
		return wrap(ErrBadInput, "email is required")
	}
	u, err := s.r.ByEmail(ctx, email)
	if err != nil || u == nil {
		return nil
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.r.SaveResetToken(ctx, u.ID, hashToken(token), s.now().Add(resetTTL)); err != nil {
		return err
	}
	return s.mail.SendReset(ctx, u.Email, token)
}

func (s *service) ResetPassword(ctx context.Context, token, password string) (*model.User, string, error) {
	if len(password) < 6 {
		return nil, "", wrap(ErrBadInput, "password must be at least 6 characters")
	}
	userID, err := s.r.ConsumeResetToken(ctx, hashToken(token), s.now())
	if err != nil {
		if errors.Is(err, authrepo.ErrTokenGone) {
			return nil, "", wrap(ErrTokenInvalid, "reset token is invalid or has expired")
		}
		return nil, "", err
	}
	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	if err := s.r.UpdatePassword(ctx, userID, hashed); err != nil {
		return nil, "", err
	}
	return s.session(ctx, &model.User{ID: userID})
}
