// Package auth handles student registration and login, the configured admin
// account, and resolving bearer tokens into caller identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"scms/backend/internal/apperr"
	"scms/backend/internal/models"
	"scms/backend/internal/storage"
)

// Service issues sessions and resolves tokens.
type Service struct {
	Storage storage.Storage
	Tokens  *TokenIssuer
	Admin   AdminAccount
}

func NewService(s storage.Storage, tokens *TokenIssuer, admin AdminAccount) *Service {
	return &Service{Storage: s, Tokens: tokens, Admin: admin}
}

type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	StudentID string
}

// Session is returned by every successful login or registration.
type Session struct {
	Token string
	User  Identity
}

const maxPasswordBytes = 72

var errBadCredentials = apperr.New(apperr.ErrUnauthenticated, "Invalid email or password.")

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := models.NormalizeEmail(in.Email)
	if name == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Name is required.")
	}
	if email == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Email is required.")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.New(apperr.ErrInvalidInput, "Email address is not valid.")
	}
	if in.Password == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Password is required.")
	}
	// bcrypt refuses longer input.
	if len(in.Password) > maxPasswordBytes {
		return nil, apperr.New(apperr.ErrInvalidInput, "Password must be at most 72 bytes.")
	}

	existing, err := s.Storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.ErrConflict, "An account with this email already exists.")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
	}
	if sid := strings.TrimSpace(in.StudentID); sid != "" {
		user.StudentID = &sid
	}
	if err := s.Storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.New(apperr.ErrConflict, "An account with this email already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.session(FromUser(user))
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.Storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		return nil, errBadCredentials
	}
	return s.session(FromUser(user))
}

func (s *Service) AdminLogin(ctx context.Context, username, password string) (*Session, error) {
	if !s.Admin.Verify(strings.TrimSpace(username), password) {
		return nil, apperr.New(apperr.ErrUnauthenticated, "Invalid administrator credentials.")
	}
	return s.session(s.Admin.Identity())
}

func (s *Service) session(id Identity) (*Session, error) {
	token, err := s.Tokens.Issue(id.Subject(), id.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: id}, nil
}

// Resolve turns a bearer token into the caller's identity.
// Student tokens are checked against the store so deleted accounts lose access.
func (s *Service) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return Identity{}, err
	}

	if claims.Role == models.RoleAdmin {
		if claims.Subject != s.Admin.Username {
			return Identity{}, errInvalidToken
		}
		return s.Admin.Identity(), nil
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, errInvalidToken
	}
	user, err := s.Storage.GetUserByID(ctx, uint(id))
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return Identity{}, apperr.New(apperr.ErrUnauthenticated, "User not found.")
	}
	return FromUser(user), nil
}
