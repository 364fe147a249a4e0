// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// # Opaque Secrets

/*
GenerateSecureToken produces an opaque, transport-safe random secret.

Description: Reads byteLength bytes from the OS CSPRNG and encodes them with
unpadded base64url. At 32 bytes the secret carries 256 bits of entropy, which
is the minimum used for refresh secrets.

Parameters:
  - byteLength: int (number of random bytes before encoding)

Returns:
  - string: Transport-encoded secret
  - error: Entropy source failures
*/
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of an opaque secret.
//
// # Storage Contract
//
// Only this digest is ever persisted. The digest is deterministic so the store
// can compare a presented secret against the stored value, but knowledge of
// the digest does not allow reconstructing the secret.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// # Password Fingerprints

// fingerprintLength is the number of digest bytes kept in a fingerprint.
// Truncation keeps reset tokens compact; 128 bits is ample for equality checks.
const fingerprintLength = 16

// Fingerprint derives a one-way fingerprint of a stored password hash.
//
// It is embedded in password-reset tokens so that a token self-invalidates the
// moment the password it was issued against changes, including via the
// token's own successful use.
func Fingerprint(passwordHash string) string {
	digest := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(digest[:fingerprintLength])
}
