// Package service provides application business logic (accounts, friends, chat, memories).
package service

import (
	"context"
	"errors"
	"strings"

	"schoolmates/internal/models"
	"schoolmates/internal/repository"
	"schoolmates/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

// TokenIssuer mints a session token for a user.
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

// AuthService handles account creation and login.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
}

// SignupInput is the input for creating an account.
type SignupInput struct {
	Name      string
	Email     string
	Password  string
	School    string
	Class     string
	Section   string
	Interests []string
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// NewAuthService returns a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// Signup creates an account and returns a session for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.School = strings.TrimSpace(in.School)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.School == "" {
		return nil, models.NewValidationError("Name, email, password and school are required")
	}

	email, err := validation.NormalizeEmail(in.Email)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:      in.Name,
		Email:     email,
		Password:  string(hash),
		School:    in.School,
		Class:     strings.TrimSpace(in.Class),
		Section:   strings.TrimSpace(in.Section),
		Interests: models.StringList(in.Interests).Normalize(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.session(user)
}

// Login verifies credentials. Unknown emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := models.NewValidationError("Invalid credentials")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, invalid
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, invalid
		}
		return nil, models.NewInternalError(err)
	}

	return s.session(user)
}

func (s *AuthService) session(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
