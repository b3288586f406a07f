package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, email, role string) (string, error) {
	args := m.Called(userID, email, role)
	return args.String(0), args.Error(1)
}

func newTestService(t *testing.T, signer tokenSigner) Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewService(Account{
		UserID:       "1",
		Email:        "test@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleCaregiver,
	}, signer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLogin_Success(t *testing.T) {
	signer := new(mockSigner)
	signer.On("Sign", "1", "test@example.com", domain.RoleCaregiver).Return("tok", nil)
	svc := newTestService(t, signer)

	assert.False(t, svc.IsAuthenticated())
	res, err := svc.Login(context.Background(), LoginRequest{Email: "Test@Example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, "tok", svc.Token())

	svc.Logout(context.Background())
	assert.False(t, svc.IsAuthenticated())
	assert.Empty(t, svc.Token())
}

func TestLogin_WrongPassword(t *testing.T) {
	signer := new(mockSigner)
	svc := newTestService(t, signer)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "test@example.com", Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, svc.IsAuthenticated())
	signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestService(t, new(mockSigner))
	_, err := svc.Login(context.Background(), LoginRequest{Email: "other@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_Validation(t *testing.T) {
	svc := newTestService(t, new(mockSigner))
	_, err := svc.Login(context.Background(), LoginRequest{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestLogin_NoPasswordConfigured(t *testing.T) {
	svc := NewService(Account{Email: "test@example.com"}, new(mockSigner), slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := svc.Login(context.Background(), LoginRequest{Email: "test@example.com", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestServiceToken(t *testing.T) {
	signer := new(mockSigner)
	signer.On("Sign", "1", "test@example.com", domain.RoleCaregiver).Return("svc", nil).Once()
	signer.On("Sign", "1", "test@example.com", domain.RoleCaregiver).Return("", errors.New("no key")).Once()
	svc := newTestService(t, signer)

	tok, err := svc.ServiceToken()
	require.NoError(t, err)
	assert.Equal(t, "svc", tok)
	assert.False(t, svc.IsAuthenticated())

	_, err = svc.ServiceToken()
	assert.Error(t, err)
}
