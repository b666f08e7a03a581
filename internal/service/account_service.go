package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/findmymua/fmm-backend/internal/apperrors"
	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/findmymua/fmm-backend/internal/mailer"
	"github.com/findmymua/fmm-backend/internal/repository"
	"github.com/findmymua/fmm-backend/pkg/auth"
	"github.com/findmymua/fmm-backend/pkg/config"
	"github.com/findmymua/fmm-backend/pkg/events"
	"github.com/findmymua/fmm-backend/pkg/logger"
)

const artistDefaultBio = "MUA"

type AccountService interface {
	Register(ctx context.Context, kind string, req *domain.RegisterRequest) (*domain.Account, string, error)
	Login(ctx context.Context, kind string, req *domain.LoginRequest) (*domain.Account, string, error)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	ForgotPassword(ctx context.Context, kind, email, resetURLBase string) (string, error)
	ResetPassword(ctx context.Context, kind, token string, req *domain.ResetPasswordRequest) (*domain.Account, string, error)
	UpdatePassword(ctx context.Context, account *domain.Account, req *domain.UpdatePasswordRequest) (string, error)
	UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	UpdateRole(ctx context.Context, id int64, role string) error
}

type accountService struct {
	accountRepo repository.AccountRepository
	mailer      mailer.Service
	eventBus    events.Publisher
	config      *config.Config
}

func NewAccountService(
	accountRepo repository.AccountRepository,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		mailer:      mailer,
		eventBus:    eventBus,
		config:      config,
	}
}

func (s *accountService) Register(ctx context.Context, kind string, req *domain.RegisterRequest) (*domain.Account, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", apperrors.Validation(err.Error())
	}

	existing, err := s.accountRepo.FindByEmail(ctx, kind, req.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, "", apperrors.Validation("An account with this email already exists")
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	bio := ""
	if kind == domain.KindArtist {
		bio = artistDefaultBio
	}

	account, err := s.accountRepo.Create(ctx, kind, req, domain.DefaultRole(kind), bio, passwordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.issueSessionToken(account)
	if err != nil {
		return nil, "", err
	}

	if err := s.eventBus.Publish(ctx, events.AccountRegistered, events.AccountRegisteredEvent{
		AccountID:    account.ID,
		Kind:         account.Kind,
		Email:        account.Email,
		RegisteredAt: account.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish registration event", "error", err, "account_id", account.ID)
	}

	return account, token, nil
}

func (s *accountService) Login(ctx context.Context, kind string, req *domain.LoginRequest) (*domain.Account, string, error) {
	req.Normalize()
	if req.Email == "" || req.Password == "" {
		return nil, "", apperrors.Validation("Please enter Email & Password")
	}

	account, err := s.accountRepo.FindByEmail(ctx, kind, req.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find account: %w", err)
	}
	// Unknown email and wrong password produce the same response, so a
	// caller cannot enumerate registered addresses.
	if account == nil {
		return nil, "", apperrors.Unauthenticated("Invalid email or password")
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, account.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, "", apperrors.Unauthenticated("Invalid email or password")
	}

	token, err := s.issueSessionToken(account)
	if err != nil {
		return nil, "", err
	}

	return account, token, nil
}

func (s *accountService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, apperrors.NotFound("User not found")
	}
	return account, nil
}

// ForgotPassword issues a reset token and mails the reset link. Only the
// token's SHA-256 hash is stored; a database read leak does not expose a
// usable token. Returns the address the email was sent to.
func (s *accountService) ForgotPassword(ctx context.Context, kind, email, resetURLBase string) (string, error) {
	account, err := s.accountRepo.FindByEmail(ctx, kind, email)
	if err != nil {
		return "", fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return "", apperrors.NotFound("User not found")
	}

	plaintext, err := generateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.config.Auth.ResetTokenTTL)
	if err := s.accountRepo.SetResetToken(ctx, account.ID, hashResetToken(plaintext), expiresAt); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/%s", resetURLBase, plaintext)
	if err := s.mailer.SendPasswordResetEmail(account.Email, account.FirstName, resetURL); err != nil {
		// Roll back so the dangling token cannot be redeemed later.
		if clearErr := s.accountRepo.ClearResetToken(ctx, account.ID); clearErr != nil {
			logger.ErrorContext(ctx, "Failed to clear reset token after send failure", "error", clearErr, "account_id", account.ID)
		}
		return "", apperrors.Dependency("Failed to send password reset email", err)
	}

	if err := s.eventBus.Publish(ctx, events.PasswordResetRequested, events.PasswordResetRequestedEvent{
		AccountID:   account.ID,
		Kind:        account.Kind,
		RequestedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish reset-requested event", "error", err, "account_id", account.ID)
	}

	return account.Email, nil
}

func (s *accountService) ResetPassword(ctx context.Context, kind, token string, req *domain.ResetPasswordRequest) (*domain.Account, string, error) {
	if req.Password != req.ConfirmPassword {
		return nil, "", apperrors.Validation("Password does not match")
	}
	if len(req.Password) < 8 {
		return nil, "", apperrors.Validation("password must be at least 8 characters")
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.accountRepo.ConsumeResetToken(ctx, kind, hashResetToken(token), passwordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	if account == nil {
		return nil, "", apperrors.Validation("Reset Password token is invalid or has been expired")
	}

	sessionToken, err := s.issueSessionToken(account)
	if err != nil {
		return nil, "", err
	}

	if err := s.eventBus.Publish(ctx, events.PasswordResetCompleted, events.PasswordResetCompletedEvent{
		AccountID:   account.ID,
		Kind:        account.Kind,
		CompletedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish reset-completed event", "error", err, "account_id", account.ID)
	}

	return account, sessionToken, nil
}

func (s *accountService) UpdatePassword(ctx context.Context, account *domain.Account, req *domain.UpdatePasswordRequest) (string, error) {
	valid, err := argon2id.ComparePasswordAndHash(req.OldPassword, account.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return "", apperrors.Validation("Old password is incorrect")
	}

	if req.NewPassword != req.ConfirmPassword {
		return "", apperrors.Validation("Password does not match")
	}
	if len(req.NewPassword) < 8 {
		return "", apperrors.Validation("password must be at least 8 characters")
	}

	passwordHash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accountRepo.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
		return "", fmt.Errorf("failed to update password: %w", err)
	}

	return s.issueSessionToken(account)
}

func (s *accountService) UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.Account, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	account, err := s.accountRepo.UpdateProfile(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if account == nil {
		return nil, apperrors.NotFound("User not found")
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	accounts, err := s.accountRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) UpdateRole(ctx context.Context, id int64, role string) error {
	if !domain.IsValidRole(role) {
		return apperrors.Validation(fmt.Sprintf("invalid role: %s", role))
	}

	if err := s.accountRepo.UpdateRole(ctx, id, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// Helper methods
func (s *accountService) issueSessionToken(account *domain.Account) (string, error) {
	token, err := auth.NewSessionToken(
		account.ID,
		account.Email,
		account.Role,
		account.Kind,
		s.config.Auth.JWTSecret,
		s.config.Auth.SessionTTL,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}
	return token, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
