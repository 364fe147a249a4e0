// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/studika/internal/platform/apperr"
	"github.com/taibuivan/studika/internal/platform/constants"
	"github.com/taibuivan/studika/internal/platform/middleware"
	requestutil "github.com/taibuivan/studika/internal/platform/request"
	"github.com/taibuivan/studika/internal/platform/respond"
	"github.com/taibuivan/studika/internal/platform/sec"
	"github.com/taibuivan/studika/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the session lifecycle entry points (Registration,
// Login, Refresh rotation, Password recovery). It is strictly responsible
// for transport concerns: status codes, cookies, validation and JSON.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register : Creates a new account.
//   - POST /login    : Authenticates and issues the token pair.
//   - POST /refresh  : Rotates the refresh secret. Deliberately public: it
//     authenticates with the expired access token plus the secret cookie,
//     so it must not sit behind the strict-validation middleware.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
	})

	// Operational endpoints. The audit trail must stay invisible to the
	// account holder: a stolen access token would otherwise reveal whether
	// a replayed refresh secret was noticed.
	router.With(middleware.RequireRole(sec.RoleAdmin)).
		Get("/security-events/{accountID}", handler.securityEvents)

	return router
}

// # Request Payloads

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// setRefreshCookie installs the refresh secret as a hardened cookie scoped to
// the auth endpoints only.
func setRefreshCookie(writer http.ResponseWriter, secret string, expiresAt time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    secret,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the refresh cookie on the client.
func clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionResponse is the common body for login and refresh.
func sessionResponse(session *LoginSession, accessTokenTTL time.Duration) map[string]any {
	return map[string]any{
		FieldAccountID:   session.AccountID,
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(accessTokenTTL / time.Second),
	}
}

/*
Register handles the creation of a new member account.

POST /api/v1/auth/register

Description: Validates input, checks for identity conflicts, and persists
a new credential record.

Request:
  - Body: registerRequest (Email, Password, DisplayName)

Response:
  - 201: Account: Created account profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		Required(FieldDisplayName, input.DisplayName).
		MaxLen(FieldDisplayName, input.DisplayName, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, account)
}

/*
Login authenticates a member and establishes the single session.

POST /api/v1/auth/login

Description: Verifies credentials, mints the access token, and injects the
refresh secret cookie. The secret itself never appears in the JSON body.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: Session: access_token, token_type, expires_in
  - 401: ErrUnauthorized: Invalid credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, session.RefreshSecret, session.RefreshTokenExpiresAt)
	respond.OK(writer, sessionResponse(session, handler.authService.AccessTokenTTL()))
}

/*
Refresh rotates the session using the expired access token plus the secret.

POST /api/v1/auth/refresh

Description: The client presents its previous access token in the
Authorization header (expiry is ignored, signature is not) together with the
refresh secret cookie. Every failure returns the same 401 body; reuse of a
stale secret additionally revokes the session server-side.

Response:
  - 200: Session: Rotated access token credentials and cookie
  - 401: ErrUnauthorized: Generic re-login message
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	oldAccessToken := requestutil.BearerToken(request)
	if oldAccessToken == "" {
		respond.Error(writer, request, apperr.Unauthorized(ReloginMessage))
		return
	}

	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized(ReloginMessage))
		return
	}

	session, err := handler.authService.Refresh(request.Context(), RefreshInput{
		OldAccessToken:  oldAccessToken,
		PresentedSecret: cookie.Value,
		UserAgent:       request.UserAgent(),
		IPAddress:       middleware.RealIP(request),
	})

	if err != nil {
		// A dead session leaves nothing for the cookie to reference, but a
		// transient storage failure must not evict a healthy client.
		if appError := apperr.As(err); appError != nil && appError.HTTPStatus == http.StatusUnauthorized {
			clearRefreshCookie(writer)
		}
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, session.RefreshSecret, session.RefreshTokenExpiresAt)
	respond.OK(writer, sessionResponse(session, handler.authService.AccessTokenTTL()))
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Description: Clears the account's refresh slot and expires the client cookie.
Idempotent.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), accountID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	clearRefreshCookie(writer)
	respond.NoContent(writer)
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/v1/auth/forgot-password

Description: Issues a stateless reset token and mails the link if the account
exists. The response body is identical either way.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Success: Generic confirmation message
  - 400: ErrInvalidJSON: Invalid email format
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: ResetRequestedMessage,
	})
}

/*
ResetPassword completes the password recovery flow.

POST /api/v1/auth/reset-password

Description: Requires matching password confirmation, then consumes the reset
token. Token problems and fingerprint mismatches share one generic message.

Request:
  - Body: resetPasswordRequest (Token, Password, ConfirmPassword)

Response:
  - 200: Success: Password updated
  - 400: ErrBadRequest: Generic reset failure or validation error
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		Required(FieldConfirmPassword, input.ConfirmPassword)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Confirmation mismatch deliberately shares the generic reset message.
	if input.Password != input.ConfirmPassword {
		respond.Error(writer, request, apperr.BadRequest(ResetFailedMessage))
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password updated successfully",
	})
}

/*
ChangePassword updates the authenticated member's password.

POST /api/v1/auth/change-password

Description: Verifies the current password before applying the new one. The
session line is revoked on success, so the client must log in again.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Success: Password changed
  - 401: ErrUnauthorized: Current password incorrect or session invalid
  - 400: ErrInvalidJSON: Weak password or validation failure
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, MinPasswordLength)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(
		request.Context(),
		accountID,
		input.CurrentPassword,
		input.NewPassword,
	)

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	clearRefreshCookie(writer)
	respond.OK(writer, map[string]string{
		FieldMessage: "Password changed successfully",
	})
}

/*
SecurityEvents lists an account's recent security events for operators.

GET /api/v1/auth/security-events/{accountID}

Description: Returns the capped server-side trail for the given account,
newest first. Admin only: the events carry the refresh-failure kinds that
are deliberately withheld from the account holder's own responses.

Response:
  - 200: []SecurityEvent: Recent events, newest first
  - 400: ErrValidation: Malformed account ID
  - 401: ErrUnauthorized: Authentication required
  - 403: ErrForbidden: Caller is not an administrator
*/
func (handler *Handler) securityEvents(writer http.ResponseWriter, request *http.Request) {
	accountID := requestutil.Param(request, "accountID")

	v := &validate.Validator{}
	v.UUID(FieldAccountID, accountID)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	events, err := handler.authService.SecurityEvents(request.Context(), accountID, 50)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, events)
}
