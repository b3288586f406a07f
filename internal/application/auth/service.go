// Package auth holds the configured caregiver account and the credential
// issued to it.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Account is the single account allowed to sign in.
type Account struct {
	UserID       string
	Email        string
	PasswordHash string // bcrypt
	Role         string
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context)
	IsAuthenticated() bool
	// Token returns the credential of the current login, or "" when signed out.
	Token() string
	// ServiceToken signs a credential for the configured account without a
	// password, for outbound connections made by the process itself.
	ServiceToken() (string, error)
}

type tokenSigner interface {
	Sign(userID, email, role string) (string, error)
}

type service struct {
	account Account
	signer  tokenSigner
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewService(account Account, signer tokenSigner, logger *slog.Logger) Service {
	return &service{account: account, signer: signer, logger: logger}
}

func (s *service) Login(_ context.Context, req LoginRequest) (*LoginResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !strings.EqualFold(req.Email, s.account.Email) || s.account.PasswordHash == "" {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	tok, err := s.signer.Sign(s.account.UserID, s.account.Email, s.account.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	s.logger.Info("login succeeded", "user_id", s.account.UserID)

	return &LoginResult{Token: tok, UserID: s.account.UserID, Email: s.account.Email, Role: s.account.Role}, nil
}

func (s *service) Logout(_ context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.logger.Info("logged out", "user_id", s.account.UserID)
}

func (s *service) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *service) ServiceToken() (string, error) {
	tok, err := s.signer.Sign(s.account.UserID, s.account.Email, s.account.Role)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return tok, nil
}
