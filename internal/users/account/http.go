// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/studika/internal/platform/apperr"
	requestutil "github.com/taibuivan/studika/internal/platform/request"
	"github.com/taibuivan/studika/internal/platform/respond"
	"github.com/taibuivan/studika/internal/platform/validate"
)

// Handler implements the HTTP layer for member profile management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
//
// The /me endpoints require authentication; /{id} is public discovery and
// returns a filtered view.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Profile Management
	router.Get("/me", handler.getMe)
	router.Patch("/me", handler.updateMe)

	// Public Profile discovery
	router.Get("/{id}", handler.getPublicProfile)

	return router
}

// # Profile Endpoints

/*
GET /api/v1/accounts/me.

Description: Retrieves the full private profile of the authenticated member.

Response:
  - 200: Profile: Fully hydrated profile
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.GetProfile(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// updateMeRequest defines the expected JSON payload for profile updates.
type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	Bio         *string `json:"bio"`
}

/*
PATCH /api/v1/accounts/me.

Description: Applies partial updates to the authenticated member's profile.

Request:
  - body: updateMeRequest (Partial JSON)

Response:
  - 200: Profile: The updated profile
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	if input.DisplayName != nil {
		v.MinLen("display_name", *input.DisplayName, 2).MaxLen("display_name", *input.DisplayName, 100)
	}
	if input.AvatarURL != nil {
		v.MaxLen("avatar_url", *input.AvatarURL, 500)
	}
	if input.Bio != nil {
		v.MaxLen("bio", *input.Bio, 500)
	}

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.UpdateProfile(request.Context(), accountID, UpdateProfileInput{
		DisplayName: input.DisplayName,
		AvatarURL:   input.AvatarURL,
		Bio:         input.Bio,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
GET /api/v1/accounts/{id}.

Description: Retrieves public profile information for a specific member.

Request:
  - id: string (UUID)

Response:
  - 200: Profile: Public profile data
  - 404: ErrNotFound: Account not found
*/
func (handler *Handler) getPublicProfile(writer http.ResponseWriter, request *http.Request) {
	accountID := chi.URLParam(request, "id")
	if accountID == "" {
		respond.Error(writer, request, apperr.NotFound("Account not found"))
		return
	}

	profile, err := handler.accountService.GetProfile(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile.PublicView())
}
