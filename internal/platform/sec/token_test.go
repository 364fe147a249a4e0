// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/studika/internal/platform/sec"
)

/*
TestGenerateSecureToken verifies entropy size, encoding and uniqueness of the
opaque refresh secrets.
*/
func TestGenerateSecureToken(t *testing.T) {
	token, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	// 32 raw bytes must survive the base64url round trip.
	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	// Two draws must never collide.
	other, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

/*
TestHashToken checks that digests are deterministic, hex-encoded and distinct
per input.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("some-secret")

	assert.Len(t, digest, 64) // SHA-256 as hex
	assert.Equal(t, digest, sec.HashToken("some-secret"))
	assert.NotEqual(t, digest, sec.HashToken("some-secreT"))
}

/*
TestFingerprint checks the truncated digest used inside reset tokens.
*/
func TestFingerprint(t *testing.T) {
	fingerprint := sec.Fingerprint("$2a$10$hash-one")

	assert.Len(t, fingerprint, 32) // 16 digest bytes as hex
	assert.Equal(t, fingerprint, sec.Fingerprint("$2a$10$hash-one"))

	// A new password hash must produce a different fingerprint, which is what
	// kills outstanding reset tokens after a password change.
	assert.NotEqual(t, fingerprint, sec.Fingerprint("$2a$10$hash-two"))
}

/*
TestPasswordHashing covers the bcrypt helpers end to end.
*/
func TestPasswordHashing(t *testing.T) {
	hash, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, sec.CheckPasswordHash("wrong password", hash))
}
