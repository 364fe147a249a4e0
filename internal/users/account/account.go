// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides profile management for Studika members.

It is deliberately separated from [internal/users/auth]: this package never
touches credentials or session state, only the public-facing identity
attached to an account.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/studika/internal/platform/sec"
)

// # Domain Entities

// Profile is the non-credential identity of a Studika member.
type Profile struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"display_name"`
	Role        sec.UserRole `json:"role"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
	Bio         string       `json:"bio,omitempty"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PublicView strips fields that only the owner should see.
func (profile *Profile) PublicView() *Profile {
	view := *profile
	view.Email = ""
	view.LastLoginAt = nil
	return &view
}

// # Data Access

// ProfileRepository defines the data access contract for member profiles.
type ProfileRepository interface {

	/*
		FindByID returns the profile with the given account ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Profile: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Profile, error)

	/*
		Update persists the profile's mutable fields.

		Parameters:
		  - context: context.Context
		  - profile: *Profile

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, profile *Profile) error
}
