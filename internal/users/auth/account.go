// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential and session lifecycle for Studika.

It owns the one part of the platform that enforces security invariants rather
than simple request/response mapping: short-lived access tokens, long-lived
rotating refresh secrets with reuse detection, and stateless password-reset
tokens.

# Architecture

  - Service: Orchestrates Login / Refresh / Logout and password recovery.
  - Repository: Abstracted interfaces for Postgres (credential records) and
    Redis (security event trail).
  - Security: Leverages bcrypt hashing and HS256-signed tokens from
    [internal/platform/sec].

The package ensures that identity data remains consistent and secure throughout
the platform's lifecycle.
*/
package auth

import (
	"time"

	"github.com/taibuivan/studika/internal/platform/sec"
)

// # Domain Entities

// Account is the credential record of a registered Studika member.
//
// Exactly one refresh-secret slot exists per account: RefreshTokenHash and
// RefreshTokenExpiresAt are overwritten (never appended to) on every login
// and rotation. RefreshTokenVersion is a monotonic epoch bumped on revocation.
type Account struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	DisplayName  string       `json:"display_name"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`

	// Session slot. Nil pointers model the NoSession state.
	RefreshTokenHash      *string    `json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"-"`
	RefreshTokenVersion   int        `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasLiveSession reports whether the account holds an unexpired refresh slot.
func (account *Account) HasLiveSession(now time.Time) bool {
	return account.RefreshTokenHash != nil &&
		account.RefreshTokenExpiresAt != nil &&
		account.RefreshTokenExpiresAt.After(now)
}

// SecurityEvent is one entry in the per-account server-side audit trail.
//
// The Kind values distinguish failure modes (expired vs reuse detected vs
// unidentifiable) that are deliberately indistinguishable to clients.
type SecurityEvent struct {
	AccountID  string    `json:"account_id"`
	Kind       string    `json:"kind"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// # Audit Event Kinds

// Server-side only. Never surfaced in API responses.
const (
	EventLoginSucceeded        = "login_succeeded"
	EventLoginFailed           = "login_failed"
	EventRefreshRotated        = "refresh_rotated"
	EventRefreshInvalidToken   = "refresh_rejected_invalid_token"
	EventRefreshUnknownAccount = "refresh_rejected_unknown_account"
	EventRefreshExpired        = "refresh_rejected_expired"
	EventRefreshReuseDetected  = "refresh_reuse_detected"
	EventLogout                = "logout"
	EventPasswordChanged       = "password_changed"
	EventResetRequested        = "password_reset_requested"
	EventResetCompleted        = "password_reset_completed"
	EventResetRejected         = "password_reset_rejected"
)

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldDisplayName     = "display_name"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldConfirmPassword = "confirm_password"
	FieldAccountID       = "account_id"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldMessage         = "message"
)
