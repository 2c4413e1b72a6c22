package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/shop-auth/internal/events"
	"github.com/Skotchmaster/shop-auth/internal/logging"
	"github.com/Skotchmaster/shop-auth/internal/models"
	"github.com/Skotchmaster/shop-auth/internal/repo"
	"github.com/Skotchmaster/shop-auth/internal/tokens"
	"github.com/Skotchmaster/shop-auth/internal/transport"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

const (
	defaultOpTimeout    = 5 * time.Second
	eventPublishTimeout = 5 * time.Second
)

type UserStore interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, username, email, passwordHash, passwordSalt string) (*models.User, error)
	FindByCredential(ctx context.Context, identifier, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type PasswordHasher interface {
	HashPassword(password string) (hash, salt string, err error)
}

type TokenService interface {
	Issue(userID int64, username string) (string, error)
	Verify(token string) (*tokens.Identity, error)
}

type AuthService struct {
	Repo   UserStore
	Hasher PasswordHasher
	Tokens TokenService
	Events events.Publisher

	// OpTimeout bounds each datastore round-trip; zero means five seconds.
	OpTimeout time.Duration
	Now       func() time.Time
}

func (s *AuthService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.OpTimeout
	if d <= 0 {
		d = defaultOpTimeout
	}
	return context.WithTimeout(ctx, d)
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*transport.AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if username == "" || email == "" || password == "" {
		l.Warn("register_error", "status", 400, "reason", "missing required fields")
		return nil, fmt.Errorf("%w: missing required fields", ErrValidation)
	}

	pwHash, salt, err := s.Hasher.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := s.Repo.ExistsByUsernameOrEmail(opCtx, username, email)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "uniqueness check failed", "error", err)
		return nil, err
	}
	if exists {
		l.Warn("register_error", "status", 400, "reason", "user already exist")
		return nil, ErrConflict
	}

	user, err := s.Repo.Create(opCtx, username, email, pwHash, salt)
	if err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 400, "reason", "user already exist", "race", true)
			return nil, ErrConflict
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}

	s.publish(ctx, events.TypeUserRegistered, user)
	l.Info("register_successful", "user_id", user.ID)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, login, password string) (*transport.AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if login == "" || password == "" {
		l.Warn("login_error", "status", 400, "reason", "missing login or password")
		return nil, fmt.Errorf("%w: missing login or password", ErrValidation)
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.Repo.FindByCredential(opCtx, login, password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredential) {
			l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}

	s.publish(ctx, events.TypeUserLoggedIn, user)
	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

// Me resolves a bearer token to the current state of its user.
func (s *AuthService) Me(ctx context.Context, token string) (*transport.UserView, error) {
	l := logging.FromContext(ctx).With("svc", "auth.me")

	id, err := s.Tokens.Verify(token)
	if err != nil {
		l.Warn("me_failed", "status", 401, "reason", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.Repo.GetUserByID(opCtx, id.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("me_failed", "status", 401, "reason", "user no longer exists", "user_id", id.UserID)
			return nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
		}
		l.Error("me_failed", "status", 500, "error", err)
		return nil, err
	}
	if user.Username != id.Username {
		l.Warn("me_failed", "status", 401, "reason", "username mismatch", "user_id", id.UserID)
		return nil, fmt.Errorf("%w: username mismatch", ErrUnauthorized)
	}

	view := transport.NewUserView(user)
	return &view, nil
}

func (s *AuthService) issue(user *models.User) (*transport.AuthResult, error) {
	token, err := s.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &transport.AuthResult{Token: token, User: transport.NewUserView(user)}, nil
}

func (s *AuthService) publish(ctx context.Context, typ string, user *models.User) {
	if s.Events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	ev := events.AuthEvent{Type: typ, UserID: user.ID, Username: user.Username, At: s.now()}
	if err := s.Events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", typ, "user_id", user.ID, "error", err)
	}
}
