// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/studika/internal/platform/apperr"
)

// # Profile Repository

// PostgresProfileRepository implements the ProfileRepository interface using pgx.
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new PostgreSQL implementation of the ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

/*
FindByID retrieves a profile record by its account ID.

Description: Reads only the non-credential columns of users.account; the
session slot and password hash never leave the auth package's stores.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Profile: Hydrated profile entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresProfileRepository) FindByID(context context.Context, id string) (*Profile, error) {
	const query = `
		SELECT id, email, displayname, role, avatarurl, bio, lastloginat, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	profile := &Profile{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&profile.ID,
		&profile.Email,
		&profile.DisplayName,
		&profile.Role,
		&profile.AvatarURL,
		&profile.Bio,
		&profile.LastLoginAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account not found")
		}
		return nil, fmt.Errorf("postgres_profile_repo_find_by_id_failed: %w", err)
	}

	return profile, nil
}

/*
Update persists changes to a profile's mutable fields.

Description: Synchronizes the in-memory profile state with the database,
refreshing the updatedat timestamp.

Parameters:
  - context: context.Context
  - profile: *Profile

Returns:
  - error: Update failures
*/
func (repository *PostgresProfileRepository) Update(context context.Context, profile *Profile) error {
	const query = `
		UPDATE users.account
		SET displayname = $2, avatarurl = $3, bio = $4, updatedat = $5
		WHERE id = $1`

	profile.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		profile.ID,
		profile.DisplayName,
		profile.AvatarURL,
		profile.Bio,
		profile.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_profile_repo_update_failed: %w", err)
	}

	return nil
}
