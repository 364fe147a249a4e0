// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Credential Data Access

// CredentialRepository defines the data access contract for account
// credential records.
//
// # Atomicity
//
// SwapRefresh and RevokeSession must each be applied as a single atomic
// statement per account: when two refresh calls race on the same secret,
// exactly one swap applies and the loser must observe that its compare
// failed. Accounts are independent; no cross-account coordination exists.
type CredentialRepository interface {

	/*
		FindByID returns the credential record with the given account ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail returns the credential record with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		Create persists a brand-new account. Refresh fields start null
		(NoSession) and the version epoch starts at zero.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, account *Account) error

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, accountID, newHash string) error

	/*
		SaveLoginRefresh overwrites the refresh slot with a fresh digest and
		expiry, and stamps lastLoginAt. Any prior pair is replaced, never
		appended to.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - tokenHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SaveLoginRefresh(context context.Context, accountID, tokenHash string, expiresAt time.Time) error

	/*
		SwapRefresh atomically replaces the refresh slot ONLY IF the stored
		digest still equals expectedHash (compare-and-swap).

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - expectedHash: string (digest the caller just matched against)
		  - newHash: string
		  - expiresAt: time.Time

		Returns:
		  - bool: Whether the swap applied; false means another rotation won
		  - error: Persistence failures
	*/
	SwapRefresh(context context.Context, accountID, expectedHash, newHash string, expiresAt time.Time) (bool, error)

	/*
		ClearRefresh nulls the refresh slot without touching the version
		epoch. Idempotent; used by logout and expired-session cleanup.

		Parameters:
		  - context: context.Context
		  - accountID: string

		Returns:
		  - error: Persistence failures
	*/
	ClearRefresh(context context.Context, accountID string) error

	/*
		RevokeSession kills the whole session line: the version epoch is
		incremented and the refresh slot cleared in one atomic statement.
		The epoch never decreases.

		Parameters:
		  - context: context.Context
		  - accountID: string

		Returns:
		  - error: Persistence failures
	*/
	RevokeSession(context context.Context, accountID string) error
}

// # Audit Trail Access

// SecurityEventRepository defines the contract for the server-side security
// event trail. Writes are best-effort: the auth flows never fail because the
// trail is unavailable.
type SecurityEventRepository interface {

	/*
		Record appends an event to the account's capped trail.

		Parameters:
		  - context: context.Context
		  - event: *SecurityEvent

		Returns:
		  - error: Storage failures (callers may ignore)
	*/
	Record(context context.Context, event *SecurityEvent) error

	/*
		Recent returns the newest events for an account, newest first.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - limit: int

		Returns:
		  - []SecurityEvent: Decoded events
		  - error: Retrieval failures
	*/
	Recent(context context.Context, accountID string, limit int) ([]SecurityEvent, error)
}

// # Outbound Mail

// ResetMailer is the external collaborator that delivers password-reset
// links. The auth service hands it a ready-made URL and never learns whether
// delivery succeeded in time for the response (anti-enumeration).
type ResetMailer interface {

	/*
		SendPasswordReset delivers a reset link to the given address.

		Parameters:
		  - context: context.Context
		  - email: string
		  - resetURL: string

		Returns:
		  - error: Delivery hand-off failures
	*/
	SendPasswordReset(context context.Context, email, resetURL string) error
}
