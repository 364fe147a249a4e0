// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/studika/internal/platform/constants"
	"github.com/taibuivan/studika/internal/users/auth"
)

func newRedisRepository(t *testing.T) (*auth.RedisSecurityEventRepository, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewSecurityEventRepository(client), server
}

/*
TestSecurityEventRepository_RecordAndRecent verifies round-trip order:
newest events come back first.
*/
func TestSecurityEventRepository_RecordAndRecent(t *testing.T) {
	repository, _ := newRedisRepository(t)
	ctx := context.Background()

	for _, kind := range []string{auth.EventLoginSucceeded, auth.EventRefreshRotated, auth.EventLogout} {
		require.NoError(t, repository.Record(ctx, &auth.SecurityEvent{
			AccountID:  "acc-1",
			Kind:       kind,
			IPAddress:  "203.0.113.7",
			OccurredAt: time.Now(),
		}))
	}

	events, err := repository.Recent(ctx, "acc-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, auth.EventLogout, events[0].Kind)
	assert.Equal(t, auth.EventRefreshRotated, events[1].Kind)
	assert.Equal(t, auth.EventLoginSucceeded, events[2].Kind)
	assert.Equal(t, "203.0.113.7", events[0].IPAddress)
}

/*
TestSecurityEventRepository_TrailIsCapped writes past the cap and checks the
oldest entries fall off.
*/
func TestSecurityEventRepository_TrailIsCapped(t *testing.T) {
	repository, server := newRedisRepository(t)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		require.NoError(t, repository.Record(ctx, &auth.SecurityEvent{
			AccountID:  "acc-1",
			Kind:       fmt.Sprintf("event_%03d", i),
			OccurredAt: time.Now(),
		}))
	}

	events, err := repository.Recent(ctx, "acc-1", 1000)
	require.NoError(t, err)
	assert.Len(t, events, 100)

	// Newest survives, the very first writes are gone.
	assert.Equal(t, "event_119", events[0].Kind)
	assert.Equal(t, "event_020", events[len(events)-1].Kind)

	// The key carries an expiry so inactive accounts age out.
	ttl := server.TTL(constants.RedisPrefixSecurityEvents + "acc-1")
	assert.Greater(t, ttl, time.Duration(0))
}

/*
TestSecurityEventRepository_AccountsAreIsolated checks that trails never bleed
across accounts.
*/
func TestSecurityEventRepository_AccountsAreIsolated(t *testing.T) {
	repository, _ := newRedisRepository(t)
	ctx := context.Background()

	require.NoError(t, repository.Record(ctx, &auth.SecurityEvent{
		AccountID: "acc-1", Kind: auth.EventLoginSucceeded, OccurredAt: time.Now(),
	}))
	require.NoError(t, repository.Record(ctx, &auth.SecurityEvent{
		AccountID: "acc-2", Kind: auth.EventRefreshReuseDetected, OccurredAt: time.Now(),
	}))

	events, err := repository.Recent(ctx, "acc-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, auth.EventLoginSucceeded, events[0].Kind)

	empty, err := repository.Recent(ctx, "acc-3", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
