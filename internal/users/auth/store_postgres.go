// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/studika/internal/platform/apperr"
	"github.com/taibuivan/studika/internal/platform/dberr"
)

// # Credential Repository

// accountColumns is the canonical column list; every SELECT must scan the
// full credential record so session-slot state is never partially hydrated.
const accountColumns = `
	id, email, displayname, passwordhash, role,
	refreshtokenhash, refreshtokenexpiresat, refreshtokenversion,
	lastloginat, createdat, updatedat`

// PostgresCredentialRepository implements the CredentialRepository interface using pgx.
type PostgresCredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository creates a new PostgreSQL implementation of the CredentialRepository.
func NewCredentialRepository(pool *pgxpool.Pool) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{pool: pool}
}

// scanAccount hydrates one account row from the canonical column order.
func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&account.Role,
		&account.RefreshTokenHash,
		&account.RefreshTokenExpiresAt,
		&account.RefreshTokenVersion,
		&account.LastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	return account, err
}

/*
FindByID retrieves a credential record by its unique ID.

Description: Primary key resolution including the full session slot.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated credential entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresCredentialRepository) FindByID(context context.Context, id string) (*Account, error) {
	query := "SELECT " + accountColumns + " FROM users.account WHERE id = $1"

	account, err := scanAccount(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account not found")
		}
		return nil, fmt.Errorf("postgres_credential_repo_find_by_id_failed: %w", err)
	}

	return account, nil
}

/*
FindByEmail retrieves a credential record by its unique email address.

Description: Login-path lookup on the account table.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Account: Hydrated credential entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresCredentialRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	query := "SELECT " + accountColumns + " FROM users.account WHERE email = $1"

	account, err := scanAccount(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account not found with this email")
		}
		return nil, fmt.Errorf("postgres_credential_repo_find_by_email_failed: %w", err)
	}

	return account, nil
}

/*
Create persists a new credential record into the users.account table.

Description: Refresh columns start NULL (no session) and the version epoch
starts at zero; both come from column defaults.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate email, or connectivity errors
*/
func (repository *PostgresCredentialRepository) Create(context context.Context, account *Account) error {
	const query = `
		INSERT INTO users.account (
			id, email, displayname, passwordhash, role, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "account")
	}

	return nil
}

/*
UpdatePassword updates only the password hash for a specific account.

Parameters:
  - context: context.Context
  - accountID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresCredentialRepository) UpdatePassword(context context.Context, accountID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_credential_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
SaveLoginRefresh overwrites the refresh slot after a successful login.

Description: Unconditional single-statement write: the digest and expiry
replace whatever was there, and lastloginat is stamped in the same pass.

Parameters:
  - context: context.Context
  - accountID: string
  - tokenHash: string (SHA-256 hex digest of the refresh secret)
  - expiresAt: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresCredentialRepository) SaveLoginRefresh(context context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = $2, refreshtokenexpiresat = $3, lastloginat = $4, updatedat = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, tokenHash, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_credential_repo_save_login_refresh_failed: %w", err)
	}

	return nil
}

/*
SwapRefresh rotates the refresh slot with compare-and-swap semantics.

Description: The WHERE clause pins the stored digest, so of two racing
rotations exactly one matches and the loser observes zero rows affected.
No explicit transaction is needed; a single UPDATE is atomic per row.

Parameters:
  - context: context.Context
  - accountID: string
  - expectedHash: string (digest the caller just matched against)
  - newHash: string
  - expiresAt: time.Time

Returns:
  - bool: Whether the swap applied
  - error: Execution errors
*/
func (repository *PostgresCredentialRepository) SwapRefresh(context context.Context, accountID, expectedHash, newHash string, expiresAt time.Time) (bool, error) {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = $3, refreshtokenexpiresat = $4, updatedat = $5
		WHERE id = $1 AND refreshtokenhash = $2`

	tag, err := repository.pool.Exec(context, query, accountID, expectedHash, newHash, expiresAt, time.Now())
	if err != nil {
		return false, fmt.Errorf("postgres_credential_repo_swap_refresh_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

/*
ClearRefresh nulls the refresh slot without touching the version epoch.

Description: Idempotent logout semantics; clearing an already-empty slot
succeeds silently.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresCredentialRepository) ClearRefresh(context context.Context, accountID string) error {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = NULL, refreshtokenexpiresat = NULL, updatedat = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_credential_repo_clear_refresh_failed: %w", err)
	}

	return nil
}

/*
RevokeSession kills the account's whole session line.

Description: One atomic statement increments the version epoch and clears the
slot, so previously minted access tokens fail the version check and the
refresh secret dies at the same instant.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresCredentialRepository) RevokeSession(context context.Context, accountID string) error {
	const query = `
		UPDATE users.account
		SET refreshtokenversion = refreshtokenversion + 1,
		    refreshtokenhash = NULL, refreshtokenexpiresat = NULL, updatedat = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_credential_repo_revoke_session_failed: %w", err)
	}

	return nil
}
