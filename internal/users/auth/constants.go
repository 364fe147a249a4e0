// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// RefreshTokenLength is the byte length of the random refresh secret.
	// 32 bytes gives 256 bits of entropy before transport encoding.
	RefreshTokenLength = 32

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Fixed at 30 minutes and deliberately not configurable.
	ResetTokenTTL = 30 * time.Minute

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
)

// ReloginMessage is the single client-visible message for every refresh and
// session failure. The four internal failure kinds (missing/invalid token,
// unidentifiable account, expired session, reuse detected) are retained in
// server-side audit logs only, so a caller probing the revocation logic
// learns nothing.
const ReloginMessage = "Session is no longer valid. Please log in again."

// ResetFailedMessage is the single client-visible message for every
// reset-password failure: confirmation mismatch, invalid or expired token,
// and stale password fingerprint are not distinguished to the caller.
const ResetFailedMessage = "Unable to reset the password. The link may be invalid or expired. Please request a new one."

// ResetRequestedMessage is returned by forgot-password whether or not the
// email exists, to prevent account enumeration.
const ResetRequestedMessage = "If this email is registered, a reset link has been sent."
