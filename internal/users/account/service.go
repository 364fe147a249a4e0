// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/studika/internal/platform/ctxutil"
)

// # Service Layer

// Service orchestrates business logic for member profiles.
type Service struct {
	profileRepository ProfileRepository
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(profileRepo ProfileRepository) *Service {
	return &Service{profileRepository: profileRepo}
}

// # Profile Management

/*
GetProfile retrieves the full private profile of a member.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *Profile: The hydrated profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, accountID string) (*Profile, error) {
	profile, err := service.profileRepository.FindByID(context, accountID)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfileInput defines the mutable subset of profile fields.
type UpdateProfileInput struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
}

/*
UpdateProfile applies a partial set of changes to a member's profile.

Description: Fetches the existing state, overrides provided fields, and
synchronizes the change to persistent storage.

Parameters:
  - context: context.Context
  - accountID: string
  - input: UpdateProfileInput

Returns:
  - *Profile: The updated profile
  - error: Update or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, accountID string, input UpdateProfileInput) (*Profile, error) {
	profile, err := service.profileRepository.FindByID(context, accountID)
	if err != nil {
		return nil, err
	}

	// Apply delta updates
	if input.DisplayName != nil {
		profile.DisplayName = *input.DisplayName
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = *input.AvatarURL
	}
	if input.Bio != nil {
		profile.Bio = *input.Bio
	}

	// Persist changes
	if err := service.profileRepository.Update(context, profile); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "member_profile_updated",
		slog.String("account_id", accountID))

	return profile, nil
}
