package services

import (
	"context"
	"errors"
	"strings"

	"github.com/chepyr/taskboard/internal/apperr"
	"github.com/chepyr/taskboard/internal/auth"
	"github.com/chepyr/taskboard/internal/db"
	"github.com/chepyr/taskboard/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	msgAllFieldsRequired   = "All fields are required"
	msgUserExists          = "User already exists"
	msgCredentialsRequired = "Email & password required"
	msgUserNotFound        = "User not found"
	msgInvalidCredentials  = "Invalid credentials"
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string
	User  models.PublicUser
}

type AuthService struct {
	users  db.UserRepositoryInterface
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	log    logrus.FieldLogger
}

func NewAuthService(users db.UserRepositoryInterface, hasher *auth.PasswordHasher,
	tokens *auth.TokenManager, log logrus.FieldLogger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log}
}

// Register creates an account. The email must not be taken; the password is
// stored only as a bcrypt hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.PublicUser, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return models.PublicUser{}, apperr.Validation(msgAllFieldsRequired)
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return models.PublicUser{}, apperr.Conflict(msgUserExists)
	case !errors.Is(err, db.ErrNotFound):
		return models.PublicUser{}, translate(err, msgUserNotFound)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.PublicUser{}, apperr.Internal("hash password", err)
	}
	user := &models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return models.PublicUser{}, translate(err, msgUserNotFound)
	}

	s.log.WithFields(logrus.Fields{"event": "user_registered", "user_id": user.ID}).Info("user registered")
	return user.Public(), nil
}

// Login checks credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation(msgCredentialsRequired)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, translate(err, msgUserNotFound)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.log.WithFields(logrus.Fields{"event": "login_failed", "user_id": user.ID}).Warn("invalid password")
		return nil, apperr.Auth(msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"event": "user_logged_in", "user_id": user.ID}).Info("user logged in")
	return &LoginResult{Token: token, User: user.Public()}, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, translate(err, msgUserNotFound)
	}
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}
