//go:build !integration

package redis

import (
	"os"
	"testing"
)

// liveRedisAddr returns NIFTY_TEST_REDIS_ADDR or skips.
func liveRedisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("NIFTY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NIFTY_TEST_REDIS_ADDR not set (or run with -tags integration)")
	}
	return addr
}
