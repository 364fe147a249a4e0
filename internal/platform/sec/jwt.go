// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, Token Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via narrow interfaces. Everything here is pure, stateless
// and safe for concurrent use.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single outcome for every token verification failure.
//
// # Security
//
// Bad signature, wrong issuer or audience, malformed payload and expiry all
// collapse into this one error so that callers (and, transitively, clients)
// cannot distinguish why a token was rejected.
var ErrInvalidToken = errors.New("sec: invalid token")

// ResetTokenPurpose is the purpose claim stamped into password-reset tokens.
const ResetTokenPurpose = "pwd_reset"

// AuthClaims represents the payload embedded inside a signed access token.
//
// # Why custom claims?
//
// By embedding the AccountID, Role and session Version directly inside the
// token, downstream request authorization can reconstruct the caller context
// WITHOUT querying the database on every single API request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the token payload small.
	AccountID string `json:"uid"`
	Role      string `json:"rol"`

	// Version is the account's refresh-token version epoch at issuance time.
	// It is bumped on every revocation and checked on the refresh path.
	Version int `json:"ver"`
}

// ResetClaims represents the payload embedded inside a password-reset token.
type ResetClaims struct {
	jwt.RegisteredClaims

	// Purpose must equal [ResetTokenPurpose]; it prevents an access token from
	// being replayed as a reset capability and vice versa.
	Purpose string `json:"pur"`

	// Fingerprint is the one-way digest of the password hash the token was
	// issued against. Validity is recomputed from current account state at
	// use-time, never looked up in a registry.
	Fingerprint string `json:"fpr"`
}

// TokenService handles generation and verification of signed tokens using HS256.
//
// The signing secret, issuer and audience are fixed at construction and never
// mutated afterwards; the service is immutable process-wide state.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenService creates a new TokenService with a symmetric signing secret.
func NewTokenService(secret, issuer, audience string) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// # Access Tokens

/*
GenerateAccessToken creates a new signed access token for an account.

Parameters:
  - accountID: string (token subject)
  - role: string (authorization level at issuance)
  - version: int (refresh-token version epoch at issuance)
  - timeToLive: time.Duration (validity window)

Returns:
  - string: Compact signed token
  - error: Signing failures
*/
func (service *TokenService) GenerateAccessToken(accountID, role string, version int, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    service.issuer,
			Audience:  jwt.ClaimStrings{service.audience},
			NotBefore: jwt.NewNumericDate(currentTime),
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		AccountID: accountID,
		Role:      role,
		Version:   version,
	}

	return service.sign(claims)
}

// VerifyAccessToken checks signature, issuer, audience and expiry of an access token.
//
// Any failure collapses to [ErrInvalidToken].
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, service.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithAudience(service.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IdentityFromExpiredToken recovers the claims of an access token whose expiry
// has already passed. Signature, issuer and audience are still enforced.
//
// # Narrow Purpose
//
// This decode path exists SOLELY so the refresh flow can learn which account a
// just-expired access token belonged to. It must never be used to authorize a
// live action, which is why it is a distinct method rather than a flag on
// [TokenService.VerifyAccessToken].
func (service *TokenService) IdentityFromExpiredToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, service.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// WithoutClaimsValidation skips issuer/audience too, so re-check them here.
	if claims.Issuer != service.issuer || !containsAudience(claims.Audience, service.audience) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// # Password-Reset Tokens

/*
GeneratePasswordResetToken creates a self-contained reset capability token.

Description: Embeds the account ID, the reset purpose claim, and the one-way
fingerprint of the account's current password hash. No server-side registry of
outstanding tokens exists; validity is recomputed at use-time.

Parameters:
  - accountID: string
  - fingerprint: string (output of [Fingerprint] over the current password hash)
  - timeToLive: time.Duration (fixed at 30 minutes by the caller)

Returns:
  - string: Compact signed token
  - error: Signing failures
*/
func (service *TokenService) GeneratePasswordResetToken(accountID, fingerprint string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    service.issuer,
			Audience:  jwt.ClaimStrings{service.audience},
			NotBefore: jwt.NewNumericDate(currentTime),
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Purpose:     ResetTokenPurpose,
		Fingerprint: fingerprint,
	}

	return service.sign(claims)
}

// VerifyPasswordResetToken checks signature, issuer, audience, expiry and the
// purpose claim of a reset token. Any failure collapses to [ErrInvalidToken].
func (service *TokenService) VerifyPasswordResetToken(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, service.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithAudience(service.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Purpose != ResetTokenPurpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// # Internals

// sign serializes and signs a claims set with the symmetric secret.
func (service *TokenService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// keyFunc returns the symmetric verification key.
func (service *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	return service.secret, nil
}

// containsAudience reports whether the audience claim includes the expected value.
func containsAudience(audience jwt.ClaimStrings, expected string) bool {
	for _, entry := range audience {
		if entry == expected {
			return true
		}
	}
	return false
}
