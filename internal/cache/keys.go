package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%s"
	PinKeyPrefix     = "pin:%s"
	RevokedJTIPrefix = "revoked_jti:%s"
	LikeCachePrefix  = "likecache:%s"
	RateLimitPrefix  = "rl:%s:%s"
)

const (
	UserTTL = 5 * time.Minute
	PinTTL  = 30 * time.Minute
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PinKey(pinID string) string {
	return fmt.Sprintf(PinKeyPrefix, pinID)
}

// RevokedJTIKey marks a locally issued session token as signed out.
func RevokedJTIKey(jti string) string {
	return fmt.Sprintf(RevokedJTIPrefix, jti)
}

// LikeCacheKey namespaces a device's like marks.
func LikeCacheKey(deviceID string) string {
	return fmt.Sprintf(LikeCachePrefix, deviceID)
}

// RateLimitKey counts requests of one caller against a named limit.
func RateLimitKey(limit, caller string) string {
	return fmt.Sprintf(RateLimitPrefix, limit, caller)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePin(ctx context.Context, pinID string) {
	Invalidate(ctx, PinKey(pinID))
}
