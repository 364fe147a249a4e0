// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/studika/internal/platform/constants"
)

// # Security Event Trail

const (
	// securityEventCap bounds each account's trail length.
	securityEventCap = 100

	// securityEventTTL expires trails of long-inactive accounts.
	securityEventTTL = 30 * 24 * time.Hour
)

// RedisSecurityEventRepository implements SecurityEventRepository as a
// capped per-account list in Redis.
type RedisSecurityEventRepository struct {
	client *redis.Client
}

// NewSecurityEventRepository creates a new Redis-backed SecurityEventRepository.
func NewSecurityEventRepository(client *redis.Client) *RedisSecurityEventRepository {
	return &RedisSecurityEventRepository{client: client}
}

func securityEventKey(accountID string) string {
	return constants.RedisPrefixSecurityEvents + accountID
}

/*
Record appends an event to the account's trail.

Description: Pushes the JSON-encoded event, trims the list to the cap, and
refreshes the TTL in one pipeline round-trip.

Parameters:
  - context: context.Context
  - event: *SecurityEvent

Returns:
  - error: Encoding or execution errors
*/
func (repository *RedisSecurityEventRepository) Record(context context.Context, event *SecurityEvent) error {

	// Encode the event as JSON for the list entry
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis_security_event_encode_failed: %w", err)
	}

	key := securityEventKey(event.AccountID)

	// Push, trim and refresh TTL in a single pipeline
	pipe := repository.client.Pipeline()
	pipe.LPush(context, key, payload)
	pipe.LTrim(context, key, 0, securityEventCap-1)
	pipe.Expire(context, key, securityEventTTL)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_security_event_record_failed: %w", err)
	}

	return nil
}

/*
Recent returns the newest events for an account, newest first.

Parameters:
  - context: context.Context
  - accountID: string
  - limit: int

Returns:
  - []SecurityEvent: Decoded events, newest first
  - error: Retrieval or decoding errors
*/
func (repository *RedisSecurityEventRepository) Recent(context context.Context, accountID string, limit int) ([]SecurityEvent, error) {
	if limit <= 0 || limit > securityEventCap {
		limit = securityEventCap
	}

	// LPush stores newest at index 0, so a simple range reads newest first
	entries, err := repository.client.LRange(context, securityEventKey(accountID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_security_event_range_failed: %w", err)
	}

	events := make([]SecurityEvent, 0, len(entries))
	for _, entry := range entries {
		var event SecurityEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			// Skip undecodable entries rather than failing the whole read
			continue
		}
		events = append(events, event)
	}

	return events, nil
}
