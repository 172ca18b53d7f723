package service

import (
	"context"
	"errors"
	"testing"

	"schoolmates/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type tokenIssuerStub struct {
	token string
	err   error
}

func (s tokenIssuerStub) Issue(uint) (string, error) { return s.token, s.err }

func TestAuthServiceSignup(t *testing.T) {
	repo := noopUserRepo()
	var created *models.User
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 11
		created = u
		return nil
	}
	svc := NewAuthService(repo, tokenIssuerStub{token: "tok"})

	res, err := svc.Signup(context.Background(), SignupInput{
		Name:      " Asha ",
		Email:     "Asha@Example.COM",
		Password:  "secret1",
		School:    "Northfield High",
		Interests: []string{"Chess", "chess", " Music "},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, uint(11), res.User.ID)

	require.NotNil(t, created)
	assert.Equal(t, "Asha", created.Name)
	assert.Equal(t, "asha@example.com", created.Email)
	assert.NotEqual(t, "secret1", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret1")))
}

func TestAuthServiceSignupValidation(t *testing.T) {
	svc := NewAuthService(noopUserRepo(), tokenIssuerStub{token: "tok"})

	tests := []struct {
		name string
		in   SignupInput
	}{
		{"missing school", SignupInput{Name: "A", Email: "a@b.co", Password: "secret1"}},
		{"missing name", SignupInput{Email: "a@b.co", Password: "secret1", School: "S"}},
		{"bad email", SignupInput{Name: "A", Email: "not-an-email", Password: "secret1", School: "S"}},
		{"short password", SignupInput{Name: "A", Email: "a@b.co", Password: "abc", School: "S"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, models.CodeValidation, appErrCode(err))
		})
	}
}

func TestAuthServiceSignupDuplicate(t *testing.T) {
	repo := noopUserRepo()
	repo.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 1}, nil
	}
	svc := NewAuthService(repo, tokenIssuerStub{token: "tok"})

	_, err := svc.Signup(context.Background(), SignupInput{Name: "A", Email: "a@b.co", Password: "secret1", School: "S"})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, appErrCode(err))
	assert.Contains(t, err.Error(), "User already exists")
}

func TestAuthServiceLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == "a@b.co" {
			return &models.User{ID: 5, Email: email, Password: string(hash)}, nil
		}
		return nil, nil
	}
	svc := NewAuthService(repo, tokenIssuerStub{token: "tok"})

	res, err := svc.Login(context.Background(), " A@B.co ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uint(5), res.User.ID)

	_, err = svc.Login(context.Background(), "a@b.co", "wrong")
	assert.Equal(t, models.CodeValidation, appErrCode(err))

	_, err = svc.Login(context.Background(), "nobody@b.co", "secret1")
	assert.Equal(t, models.CodeValidation, appErrCode(err))
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestAuthServiceTokenFailure(t *testing.T) {
	svc := NewAuthService(noopUserRepo(), tokenIssuerStub{err: errors.New("boom")})
	_, err := svc.Signup(context.Background(), SignupInput{Name: "A", Email: "a@b.co", Password: "secret1", School: "S"})
	require.Error(t, err)
	assert.Equal(t, models.CodeInternal, appErrCode(err))
}
