// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/taibuivan/studika/internal/platform/apperr"
	"github.com/taibuivan/studika/internal/platform/ctxutil"
	"github.com/taibuivan/studika/internal/platform/sec"
)

// # Password Recovery

/*
RequestPasswordReset issues a self-contained reset token and mails the link.

Description: The token embeds a fingerprint of the account's current password
hash, so no server-side reset state exists and every outstanding token dies
the moment the password changes. The response is identical whether or not the
email is registered.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Internal failures only; unknown emails are NOT an error
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	logger := ctxutil.GetLogger(context)

	// Unknown email: succeed silently. Distinguishing here would let a caller
	// enumerate registered addresses.
	account, err := service.credentialRepository.FindByEmail(context, email)
	if err != nil {
		logger.InfoContext(context, "auth_reset_requested_unknown_email")
		return nil
	}

	// The fingerprint binds the token to the current password hash. Changing
	// the password changes the fingerprint, invalidating the token without
	// any server-side bookkeeping.
	token, err := service.tokenProvider.GeneratePasswordResetToken(
		account.ID, sec.Fingerprint(account.PasswordHash), ResetTokenTTL,
	)
	if err != nil {
		return fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s",
		service.options.PublicBaseURL, url.QueryEscape(token))

	// Mail delivery is handed off; its outcome must not alter the response.
	if err := service.mailer.SendPasswordReset(context, account.Email, resetURL); err != nil {
		logger.ErrorContext(context, "auth_reset_mail_failed", "error", err)
	}

	service.audit(context, account.ID, EventResetRequested, "", "")
	return nil
}

/*
ResetPassword consumes a reset token and installs a new password.

Description: Validates the token strictly (signature, expiry, purpose), then
checks that its embedded fingerprint still matches the account's CURRENT
password hash. A stale fingerprint means the password changed after the token
was issued, so the token is dead. On success the session line is revoked:
the new password is the only surviving credential.

All failure paths collapse to the same generic BadRequest so a caller cannot
distinguish a forged token from a merely stale one.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: BadRequest (any token problem) or internal failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// ── 1. Token Validation ───────────────────────────────────────────────
	claims, err := service.tokenProvider.VerifyPasswordResetToken(token)
	if err != nil {
		service.audit(context, "", EventResetRejected, "", "")
		return apperr.BadRequest(ResetFailedMessage)
	}

	// ── 2. Account Resolution ─────────────────────────────────────────────
	account, err := service.credentialRepository.FindByID(context, claims.Subject)
	if err != nil {
		service.audit(context, claims.Subject, EventResetRejected, "", "")
		return apperr.BadRequest(ResetFailedMessage)
	}

	// ── 3. Fingerprint Check ──────────────────────────────────────────────
	// One-shot semantics without server state: completing a reset changes
	// the hash, so the same token can never match twice.
	if claims.Fingerprint != sec.Fingerprint(account.PasswordHash) {
		service.audit(context, account.ID, EventResetRejected, "", "")
		return apperr.BadRequest(ResetFailedMessage)
	}

	// ── 4. Password Update ────────────────────────────────────────────────
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.credentialRepository.UpdatePassword(context, account.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	// ── 5. Session Revocation ─────────────────────────────────────────────
	// A reset usually means the old credentials are suspect. Kill the
	// refresh slot and bump the version epoch in one stroke.
	if err := service.credentialRepository.RevokeSession(context, account.ID); err != nil {
		return fmt.Errorf("auth_service_reset_revoke_failed: %w", err)
	}

	service.audit(context, account.ID, EventResetCompleted, "", "")
	return nil
}
