package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserStatusKey returns the cache key holding a user's current status and role.
func (r *CacheKeyStruct) UserStatusKey(userID string) string {
	return fmt.Sprintf("user:%s:status", userID)
}

// AuditLiveChannel returns the Redis PubSub channel carrying freshly recorded audit entries.
func (r *CacheKeyStruct) AuditLiveChannel() string {
	return "audit:live"
}

var CacheKey = NewCacheKeyStruct()
