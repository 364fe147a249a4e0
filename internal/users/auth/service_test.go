// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/studika/internal/platform/apperr"
	"github.com/taibuivan/studika/internal/platform/sec"
	"github.com/taibuivan/studika/internal/users/auth"
)

// # Test Fixtures

// fakeCredentialRepository is an in-memory CredentialRepository with the same
// compare-and-swap semantics as the Postgres implementation.
type fakeCredentialRepository struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
	byEmail  map[string]string
}

func newFakeCredentialRepository() *fakeCredentialRepository {
	return &fakeCredentialRepository{
		accounts: make(map[string]*auth.Account),
		byEmail:  make(map[string]string),
	}
}

func (r *fakeCredentialRepository) FindByID(_ context.Context, id string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, apperr.NotFound("Account not found")
	}
	clone := *account
	return &clone, nil
}

func (r *fakeCredentialRepository) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("Account not found with this email")
	}
	clone := *r.accounts[id]
	return &clone, nil
}

func (r *fakeCredentialRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[account.Email]; exists {
		return apperr.Conflict("account already exists")
	}
	clone := *account
	r.accounts[account.ID] = &clone
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *fakeCredentialRepository) UpdatePassword(_ context.Context, accountID, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[accountID].PasswordHash = newHash
	return nil
}

func (r *fakeCredentialRepository) SaveLoginRefresh(_ context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.accounts[accountID]
	account.RefreshTokenHash = &tokenHash
	account.RefreshTokenExpiresAt = &expiresAt
	now := time.Now()
	account.LastLoginAt = &now
	return nil
}

func (r *fakeCredentialRepository) SwapRefresh(_ context.Context, accountID, expectedHash, newHash string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.accounts[accountID]
	if account.RefreshTokenHash == nil || *account.RefreshTokenHash != expectedHash {
		return false, nil
	}
	account.RefreshTokenHash = &newHash
	account.RefreshTokenExpiresAt = &expiresAt
	return true, nil
}

func (r *fakeCredentialRepository) ClearRefresh(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[accountID]; ok {
		account.RefreshTokenHash = nil
		account.RefreshTokenExpiresAt = nil
	}
	return nil
}

func (r *fakeCredentialRepository) RevokeSession(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.accounts[accountID]
	account.RefreshTokenVersion++
	account.RefreshTokenHash = nil
	account.RefreshTokenExpiresAt = nil
	return nil
}

// snapshot returns a copy of the stored account for assertions.
func (r *fakeCredentialRepository) snapshot(t *testing.T, accountID string) auth.Account {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	require.True(t, ok, "account %s must exist", accountID)
	return *account
}

// fakeEventRepository records security events in memory.
type fakeEventRepository struct {
	mu     sync.Mutex
	events []auth.SecurityEvent
}

func (r *fakeEventRepository) Record(_ context.Context, event *auth.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append([]auth.SecurityEvent{*event}, r.events...)
	return nil
}

func (r *fakeEventRepository) Recent(_ context.Context, accountID string, limit int) ([]auth.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []auth.SecurityEvent
	for _, event := range r.events {
		if event.AccountID == accountID && len(out) < limit {
			out = append(out, event)
		}
	}
	return out, nil
}

func (r *fakeEventRepository) kinds(accountID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []string
	for _, event := range r.events {
		if event.AccountID == accountID {
			kinds = append(kinds, event.Kind)
		}
	}
	return kinds
}

// fakeMailer captures outgoing reset links.
type fakeMailer struct {
	mu        sync.Mutex
	resetURLs []string
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

type fixture struct {
	service *auth.Service
	repo    *fakeCredentialRepository
	events  *fakeEventRepository
	mailer  *fakeMailer
	tokens  *sec.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeCredentialRepository()
	events := &fakeEventRepository{}
	mailer := &fakeMailer{}
	tokens := sec.NewTokenService("test-secret", "studika.app", "studika-web")

	service := auth.NewService(repo, events, tokens, mailer, auth.Options{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		PublicBaseURL:   "https://studika.app",
	})

	return &fixture{service: service, repo: repo, events: events, mailer: mailer, tokens: tokens}
}

// newServiceWith wires a service around a custom credential repository for
// tests that need to steer storage behavior.
func newServiceWith(repo auth.CredentialRepository) (*auth.Service, *fakeEventRepository, *sec.TokenService) {
	events := &fakeEventRepository{}
	tokens := sec.NewTokenService("test-secret", "studika.app", "studika-web")

	service := auth.NewService(repo, events, tokens, &fakeMailer{}, auth.Options{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		PublicBaseURL:   "https://studika.app",
	})

	return service, events, tokens
}

// register creates an account through the real registration path.
func (f *fixture) register(t *testing.T, email, password string) *auth.Account {
	t.Helper()
	account, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:       email,
		Password:    password,
		DisplayName: "Test Member",
	})
	require.NoError(t, err)
	return account
}

// login runs the real login path and returns the session.
func (f *fixture) login(t *testing.T, email, password string) *auth.LoginSession {
	t.Helper()
	session, err := f.service.Login(context.Background(), auth.LoginInput{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return session
}

func requireUnauthorizedRelogin(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusUnauthorized, appError.HTTPStatus)
	assert.Equal(t, auth.ReloginMessage, appError.Message)
}

// # Registration & Login

/*
TestRegister_DuplicateEmail verifies the uniqueness conflict surfaces as 409.
*/
func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dup@studika.app", "password-one")

	_, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:       "dup@studika.app",
		Password:    "password-two",
		DisplayName: "Other",
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.As(err).HTTPStatus)
}

/*
TestLogin_Success verifies the issued pair and the state of the refresh slot.
*/
func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")

	session := f.login(t, "member@studika.app", "super-secret-pw")

	assert.Equal(t, account.ID, session.AccountID)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshSecret)

	// The access token must be strictly verifiable and carry version 0.
	claims, err := f.tokens.VerifyAccessToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, 0, claims.Version)

	// Only the digest of the refresh secret may be persisted.
	stored := f.repo.snapshot(t, account.ID)
	require.NotNil(t, stored.RefreshTokenHash)
	assert.NotEqual(t, session.RefreshSecret, *stored.RefreshTokenHash)
	assert.Equal(t, sec.HashToken(session.RefreshSecret), *stored.RefreshTokenHash)
	assert.NotNil(t, stored.LastLoginAt)

	assert.Contains(t, f.events.kinds(account.ID), auth.EventLoginSucceeded)
}

/*
TestLogin_WrongPassword checks the generic rejection plus the audit record.
*/
func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")

	_, err := f.service.Login(context.Background(), auth.LoginInput{
		Email:    "member@studika.app",
		Password: "not-the-password",
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)
	assert.Contains(t, f.events.kinds(account.ID), auth.EventLoginFailed)
}

/*
TestLogin_ReplacesPriorSession verifies the single-slot model: a second login
overwrites the slot, so the first session's secret is dead.
*/
func TestLogin_ReplacesPriorSession(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")

	first := f.login(t, "member@studika.app", "super-secret-pw")
	second := f.login(t, "member@studika.app", "super-secret-pw")

	assert.NotEqual(t, first.RefreshSecret, second.RefreshSecret)

	stored := f.repo.snapshot(t, account.ID)
	require.NotNil(t, stored.RefreshTokenHash)
	assert.Equal(t, sec.HashToken(second.RefreshSecret), *stored.RefreshTokenHash)
}

// # Refresh Rotation

/*
TestRefresh_RotatesSecret covers the happy path: a fresh pair comes back, the
stored digest changes, and the version epoch is untouched.
*/
func TestRefresh_RotatesSecret(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")
	session := f.login(t, "member@studika.app", "super-secret-pw")

	rotated, err := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: session.RefreshSecret,
	})
	require.NoError(t, err)

	assert.NotEqual(t, session.RefreshSecret, rotated.RefreshSecret)
	assert.NotEmpty(t, rotated.AccessToken)

	stored := f.repo.snapshot(t, account.ID)
	require.NotNil(t, stored.RefreshTokenHash)
	assert.Equal(t, sec.HashToken(rotated.RefreshSecret), *stored.RefreshTokenHash)
	assert.Equal(t, 0, stored.RefreshTokenVersion)

	assert.Contains(t, f.events.kinds(account.ID), auth.EventRefreshRotated)
}

/*
TestRefresh_AcceptsExpiredAccessToken verifies the defining property of the
refresh path: the old access token may be past its expiry.
*/
func TestRefresh_AcceptsExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")
	session := f.login(t, "member@studika.app", "super-secret-pw")

	expiredToken, err := f.tokens.GenerateAccessToken(account.ID, "student", 0, -time.Minute)
	require.NoError(t, err)

	rotated, err := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  expiredToken,
		PresentedSecret: session.RefreshSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, rotated.AccountID)
}

/*
TestRefresh_ReuseDetection replays a rotated-out secret and expects the whole
session line to die: version bumped, slot cleared, generic message.
*/
func TestRefresh_ReuseDetection(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")
	session := f.login(t, "member@studika.app", "super-secret-pw")

	rotated, err := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: session.RefreshSecret,
	})
	require.NoError(t, err)

	// Replay the stale secret.
	_, err = f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: session.RefreshSecret,
	})
	requireUnauthorizedRelogin(t, err)

	stored := f.repo.snapshot(t, account.ID)
	assert.Nil(t, stored.RefreshTokenHash)
	assert.Nil(t, stored.RefreshTokenExpiresAt)
	assert.Equal(t, 1, stored.RefreshTokenVersion)
	assert.Contains(t, f.events.kinds(account.ID), auth.EventRefreshReuseDetected)

	// Even the current secret is dead now: revocation is total.
	_, err = f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: rotated.RefreshSecret,
	})
	requireUnauthorizedRelogin(t, err)
}

// contendedCredentialRepository loses the rotation race on purpose: a
// simulated concurrent refresh replaces the stored digest right before the
// first swap, so the compare-and-swap itself must catch the conflict.
type contendedCredentialRepository struct {
	*fakeCredentialRepository
	raceOnce sync.Once
}

func (r *contendedCredentialRepository) SwapRefresh(ctx context.Context, accountID, expectedHash, newHash string, expiresAt time.Time) (bool, error) {
	r.raceOnce.Do(func() {
		winner := sec.HashToken("concurrent-winner-secret")
		_ = r.fakeCredentialRepository.SaveLoginRefresh(ctx, accountID, winner, expiresAt)
	})
	return r.fakeCredentialRepository.SwapRefresh(ctx, accountID, expectedHash, newHash, expiresAt)
}

/*
TestRefresh_ConcurrentRotationLoserIsRevoked covers the race the digest check
cannot see: the presented secret matches at read time, but another rotation
lands before the swap. The loser must be treated exactly like replay of a
stale secret, revoking the whole session line.
*/
func TestRefresh_ConcurrentRotationLoserIsRevoked(t *testing.T) {
	repo := &contendedCredentialRepository{fakeCredentialRepository: newFakeCredentialRepository()}
	service, events, _ := newServiceWith(repo)

	account, err := service.Register(context.Background(), auth.RegisterInput{
		Email: "member@studika.app", Password: "super-secret-pw", DisplayName: "Test Member",
	})
	require.NoError(t, err)

	session, err := service.Login(context.Background(), auth.LoginInput{
		Email: "member@studika.app", Password: "super-secret-pw",
	})
	require.NoError(t, err)

	_, err = service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: session.RefreshSecret,
	})
	requireUnauthorizedRelogin(t, err)

	stored := repo.snapshot(t, account.ID)
	assert.Nil(t, stored.RefreshTokenHash)
	assert.Nil(t, stored.RefreshTokenExpiresAt)
	assert.Equal(t, 1, stored.RefreshTokenVersion)
	assert.Contains(t, events.kinds(account.ID), auth.EventRefreshReuseDetected)

	// The concurrent winner's secret died with the revocation as well.
	_, err = service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: "concurrent-winner-secret",
	})
	requireUnauthorizedRelogin(t, err)
}

/*
TestRefresh_ExpiredSession lets the slot expire and expects cleanup plus the
generic message.
*/
func TestRefresh_ExpiredSession(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")
	session := f.login(t, "member@studika.app", "super-secret-pw")

	// Force the stored expiry into the past.
	f.repo.mu.Lock()
	past := time.Now().Add(-time.Hour)
	f.repo.accounts[account.ID].RefreshTokenExpiresAt = &past
	f.repo.mu.Unlock()

	_, err := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: session.RefreshSecret,
	})
	requireUnauthorizedRelogin(t, err)

	// Residual digest is cleared so the hash can never match again.
	stored := f.repo.snapshot(t, account.ID)
	assert.Nil(t, stored.RefreshTokenHash)
	assert.Equal(t, 0, stored.RefreshTokenVersion, "expiry is not evidence of compromise")
	assert.Contains(t, f.events.kinds(account.ID), auth.EventRefreshExpired)
}

/*
TestRefresh_NoSession covers a refresh attempt after logout.
*/
func TestRefresh_NoSession(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")
	session := f.login(t, "member@studika.app", "super-secret-pw")

	require.NoError(t, f.service.Logout(context.Background(), account.ID))

	_, err := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: session.RefreshSecret,
	})
	requireUnauthorizedRelogin(t, err)
}

/*
TestRefresh_UnidentifiableToken feeds garbage and foreign-signed tokens; both
produce the generic message with no account attribution.
*/
func TestRefresh_UnidentifiableToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "member@studika.app", "super-secret-pw")

	foreign := sec.NewTokenService("other-secret", "studika.app", "studika-web")
	forged, err := foreign.GenerateAccessToken("acc-1", "student", 0, time.Minute)
	require.NoError(t, err)

	for _, token := range []string{"garbage", forged} {
		_, err := f.service.Refresh(context.Background(), auth.RefreshInput{
			OldAccessToken:  token,
			PresentedSecret: "whatever",
		})
		requireUnauthorizedRelogin(t, err)
	}
}

/*
TestRefresh_FailureMessagesAreIndistinguishable asserts that every refresh
failure kind produces exactly the same client-visible error.
*/
func TestRefresh_FailureMessagesAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")
	session := f.login(t, "member@studika.app", "super-secret-pw")

	// Kind 1: unidentifiable token.
	_, errInvalid := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken: "garbage", PresentedSecret: session.RefreshSecret,
	})

	// Kind 2: expired session.
	f.repo.mu.Lock()
	past := time.Now().Add(-time.Hour)
	f.repo.accounts[account.ID].RefreshTokenExpiresAt = &past
	f.repo.mu.Unlock()
	_, errExpired := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken: session.AccessToken, PresentedSecret: session.RefreshSecret,
	})

	// Kind 3: reuse against a re-established session.
	relogin := f.login(t, "member@studika.app", "super-secret-pw")
	_, errReuse := f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken: relogin.AccessToken, PresentedSecret: session.RefreshSecret,
	})

	for _, err := range []error{errInvalid, errExpired, errReuse} {
		requireUnauthorizedRelogin(t, err)
	}
}

// # Logout & Password Change

/*
TestLogout_IsIdempotent verifies repeat logouts succeed and never bump the
version epoch.
*/
func TestLogout_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "super-secret-pw")
	f.login(t, "member@studika.app", "super-secret-pw")

	require.NoError(t, f.service.Logout(context.Background(), account.ID))
	require.NoError(t, f.service.Logout(context.Background(), account.ID))

	stored := f.repo.snapshot(t, account.ID)
	assert.Nil(t, stored.RefreshTokenHash)
	assert.Equal(t, 0, stored.RefreshTokenVersion)
}

/*
TestChangePassword verifies the current-password gate and the full revocation
side effect.
*/
func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "member@studika.app", "old-password-1")
	session := f.login(t, "member@studika.app", "old-password-1")

	// Wrong current password is rejected.
	err := f.service.ChangePassword(context.Background(), account.ID, "wrong", "new-password-2")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)

	// Correct current password succeeds and revokes the session line.
	require.NoError(t, f.service.ChangePassword(context.Background(), account.ID, "old-password-1", "new-password-2"))

	stored := f.repo.snapshot(t, account.ID)
	assert.Nil(t, stored.RefreshTokenHash)
	assert.Equal(t, 1, stored.RefreshTokenVersion)

	// Old refresh secret is dead.
	_, err = f.service.Refresh(context.Background(), auth.RefreshInput{
		OldAccessToken:  session.AccessToken,
		PresentedSecret: session.RefreshSecret,
	})
	requireUnauthorizedRelogin(t, err)

	// Only the new password logs in.
	_, err = f.service.Login(context.Background(), auth.LoginInput{
		Email: "member@studika.app", Password: "old-password-1",
	})
	require.Error(t, err)
	f.login(t, "member@studika.app", "new-password-2")
}
