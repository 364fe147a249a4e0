// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/studika/internal/platform/apperr"
	"github.com/taibuivan/studika/internal/platform/ctxutil"
	"github.com/taibuivan/studika/internal/platform/sec"
	"github.com/taibuivan/studika/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating and decoding security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed access token for the given account.
	GenerateAccessToken(accountID, role string, version int, timeToLive time.Duration) (string, error)

	// IdentityFromExpiredToken recovers claims from an access token whose
	// expiry has passed, still enforcing signature, issuer and audience.
	// It exists solely to drive the refresh flow.
	IdentityFromExpiredToken(tokenString string) (*sec.AuthClaims, error)

	// GeneratePasswordResetToken creates a self-contained reset capability.
	GeneratePasswordResetToken(accountID, fingerprint string, timeToLive time.Duration) (string, error)

	// VerifyPasswordResetToken strictly validates a reset token.
	VerifyPasswordResetToken(tokenString string) (*sec.ResetClaims, error)
}

// Options carries the immutable lifetime and link configuration injected into
// the service at construction.
type Options struct {
	// AccessTokenTTL is the validity window of minted access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the validity window of refresh secrets.
	RefreshTokenTTL time.Duration

	// PublicBaseURL is the externally visible origin used for reset links.
	PublicBaseURL string
}

// Service implements the credential and session lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, rotation,
// or reuse-detection logic must be reviewed by the security team.
type Service struct {
	credentialRepository    CredentialRepository
	securityEventRepository SecurityEventRepository
	tokenProvider           TokenProvider
	mailer                  ResetMailer
	options                 Options
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	credentialRepo CredentialRepository,
	eventRepo SecurityEventRepository,
	tokenProv TokenProvider,
	mailer ResetMailer,
	options Options,
) *Service {
	return &Service{
		credentialRepository:    credentialRepo,
		securityEventRepository: eventRepo,
		tokenProvider:           tokenProv,
		mailer:                  mailer,
		options:                 options,
	}
}

// AccessTokenTTL exposes the configured access-token lifetime to the
// transport layer for the expires_in response field.
func (service *Service) AccessTokenTTL() time.Duration {
	return service.options.AccessTokenTTL
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

/*
Register validates, hashes, and persists a brand new account.

Description: Creates the credential record with null refresh fields
(NoSession) and a zero version epoch; the slot is populated on first login.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Account: Created entity
  - err: Conflict (if the email exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Account, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.credentialRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new Account entity. Time-sortable ID to prevent PG index fragmentation.
	account := &Account{
		ID:           uuid.New(),
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: hashedPassword,
		Role:         sec.RoleStudent,
	}

	// Persist the account to the database
	if err := service.credentialRepository.Create(context, account); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return account, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	AccountID             string
	AccessToken           string
	RefreshSecret         string
	RefreshTokenExpiresAt time.Time
	Account               *Account
}

/*
Login validates credentials and issues a fresh token pair.

Description: Verifies the password with a constant-time comparison, mints an
access token carrying the current version epoch, and overwrites the refresh
slot with a fresh secret digest regardless of any prior session state.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {

	// If the account does not exist, fail with the same generic message as a
	// wrong password to prevent enumeration.
	account, err := service.credentialRepository.FindByEmail(context, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Verify password hash using bcrypt's constant-time comparison to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		service.audit(context, account.ID, EventLoginFailed, input.IPAddress, input.UserAgent)
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Generate short-lived access token stamped with the current version epoch
	accessToken, err := service.tokenProvider.GenerateAccessToken(
		account.ID, string(account.Role), account.RefreshTokenVersion, service.options.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate a long-lived opaque refresh secret
	refreshSecret, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Overwrite the single refresh slot and stamp lastLoginAt. Any prior
	// session is implicitly replaced, never kept alongside.
	expiresAt := time.Now().Add(service.options.RefreshTokenTTL)
	if err := service.credentialRepository.SaveLoginRefresh(context, account.ID, sec.HashToken(refreshSecret), expiresAt); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	service.audit(context, account.ID, EventLoginSucceeded, input.IPAddress, input.UserAgent)

	return &LoginSession{
		AccountID:             account.ID,
		AccessToken:           accessToken,
		RefreshSecret:         refreshSecret,
		RefreshTokenExpiresAt: expiresAt,
		Account:               account,
	}, nil
}

// # Session Management

// RefreshInput carries the credentials presented on a refresh attempt.
type RefreshInput struct {
	// OldAccessToken is the (typically just-expired) access token. Only its
	// identity is recovered; it authorizes nothing by itself.
	OldAccessToken string

	// PresentedSecret is the opaque refresh secret from the client cookie.
	PresentedSecret string

	UserAgent string
	IPAddress string
}

/*
Refresh implements the rotation state machine with reuse detection.

Description: Recovers the account identity from the expired access token,
checks the presented secret against the stored digest, and either rotates the
slot (match) or revokes the entire session line (mismatch). A mismatch against
a live session can only be replay of a stale or stolen secret, so the version
epoch is bumped and the slot cleared rather than just rejecting the request.

All four failure kinds surface to the caller as the same generic Unauthorized;
the specific kind is retained in server-side audit logs only.

Parameters:
  - context: context.Context
  - input: RefreshInput

Returns:
  - *LoginSession: Rotated session credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) Refresh(context context.Context, input RefreshInput) (*LoginSession, error) {
	now := time.Now()

	// ── 1. Identity Recovery ──────────────────────────────────────────────
	// Expiry is deliberately ignored here; signature, issuer and audience
	// are still enforced. A bad signature means we cannot even attribute
	// the attempt to an account.
	claims, err := service.tokenProvider.IdentityFromExpiredToken(input.OldAccessToken)
	if err != nil {
		service.audit(context, "", EventRefreshInvalidToken, input.IPAddress, input.UserAgent)
		return nil, apperr.Unauthorized(ReloginMessage)
	}

	// ── 2. Account Resolution ─────────────────────────────────────────────
	account, err := service.credentialRepository.FindByID(context, claims.AccountID)
	if err != nil {
		service.audit(context, claims.AccountID, EventRefreshUnknownAccount, input.IPAddress, input.UserAgent)
		return nil, apperr.Unauthorized(ReloginMessage)
	}

	// ── 3. Session Liveness ───────────────────────────────────────────────
	// No slot, or an expired one, forces a full re-login. Residual digests
	// are cleared so an expired hash can never be matched again.
	if !account.HasLiveSession(now) {
		_ = service.credentialRepository.ClearRefresh(context, account.ID)
		service.audit(context, account.ID, EventRefreshExpired, input.IPAddress, input.UserAgent)
		return nil, apperr.Unauthorized(ReloginMessage)
	}

	// ── 4. Secret Comparison ──────────────────────────────────────────────
	// A well-behaved client always presents the most recently issued secret.
	// The only way a live session produces a mismatch is replay of an old or
	// stolen secret, so the whole session line is revoked.
	presentedHash := sec.HashToken(input.PresentedSecret)
	if presentedHash != *account.RefreshTokenHash {
		if err := service.credentialRepository.RevokeSession(context, account.ID); err != nil {
			return nil, fmt.Errorf("auth_service_revoke_failed: %w", err)
		}
		service.audit(context, account.ID, EventRefreshReuseDetected, input.IPAddress, input.UserAgent)
		return nil, apperr.Unauthorized(ReloginMessage)
	}

	// ── 5. Rotation ───────────────────────────────────────────────────────
	newSecret, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_secure_token_failed: %w", err)
	}

	expiresAt := now.Add(service.options.RefreshTokenTTL)
	swapped, err := service.credentialRepository.SwapRefresh(context, account.ID, presentedHash, sec.HashToken(newSecret), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("auth_service_rotation_failed: %w", err)
	}

	// Losing the compare-and-swap means a concurrent refresh already rotated
	// this secret: concurrent reuse of one refresh secret is itself grounds
	// for revocation.
	if !swapped {
		if err := service.credentialRepository.RevokeSession(context, account.ID); err != nil {
			return nil, fmt.Errorf("auth_service_revoke_failed: %w", err)
		}
		service.audit(context, account.ID, EventRefreshReuseDetected, input.IPAddress, input.UserAgent)
		return nil, apperr.Unauthorized(ReloginMessage)
	}

	// Mint the new access token at the current version epoch
	accessToken, err := service.tokenProvider.GenerateAccessToken(
		account.ID, string(account.Role), account.RefreshTokenVersion, service.options.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	service.audit(context, account.ID, EventRefreshRotated, input.IPAddress, input.UserAgent)

	return &LoginSession{
		AccountID:             account.ID,
		AccessToken:           accessToken,
		RefreshSecret:         newSecret,
		RefreshTokenExpiresAt: expiresAt,
		Account:               account,
	}, nil
}

/*
Logout clears the account's refresh slot.

Description: Idempotent. The version epoch is untouched; logging out is not
evidence of compromise.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, accountID string) error {
	if err := service.credentialRepository.ClearRefresh(context, accountID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.audit(context, accountID, EventLogout, "", "")
	return nil
}

// # Password Change

/*
ChangePassword allows an authenticated member to update their credentials.

Description: Verifies the current password, re-hashes, and revokes the session
line so every outstanding credential (refresh secret, reset tokens via
fingerprint divergence) dies with the old password.

Parameters:
  - context: context.Context
  - accountID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - err: Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, accountID, currentPassword, newPassword string) error {

	// Fetch the account by ID
	account, err := service.credentialRepository.FindByID(context, accountID)
	if err != nil {
		return err
	}

	// Verify the current password before allowing change
	if !sec.CheckPasswordHash(currentPassword, account.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	// Hash the brand new password
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	// Update the database with the new hash
	if err := service.credentialRepository.UpdatePassword(context, accountID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	// Security Side Effect: kill the session line so stolen refresh secrets
	// and outstanding reset tokens do not survive the password change.
	if err := service.credentialRepository.RevokeSession(context, accountID); err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	service.audit(context, accountID, EventPasswordChanged, "", "")
	return nil
}

// # Audit Trail

/*
SecurityEvents returns the account's recent security events, newest first.

Parameters:
  - context: context.Context
  - accountID: string
  - limit: int

Returns:
  - []SecurityEvent: Decoded trail entries
  - err: Retrieval failures
*/
func (service *Service) SecurityEvents(context context.Context, accountID string, limit int) ([]SecurityEvent, error) {
	events, err := service.securityEventRepository.Recent(context, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("auth_service_security_events_failed: %w", err)
	}
	return events, nil
}

// audit records a security event to the trail and the request logger.
// Trail writes are best-effort; auth flows never fail on audit errors.
func (service *Service) audit(context context.Context, accountID, kind, ipAddress, userAgent string) {
	logger := ctxutil.GetLogger(context)
	logger.InfoContext(context, "auth_security_event",
		slog.String("kind", kind),
		slog.String("account_id", accountID),
	)

	// Events that cannot be attributed to an account have no trail key.
	if accountID == "" || service.securityEventRepository == nil {
		return
	}

	_ = service.securityEventRepository.Record(context, &SecurityEvent{
		AccountID:  accountID,
		Kind:       kind,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		OccurredAt: time.Now(),
	})
}
