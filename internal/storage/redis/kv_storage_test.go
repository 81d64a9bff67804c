package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
	"github.com/bobmcallan/niftyscope/internal/interfaces"
)

// setupLiveRedis connects to a real Redis, or skips when none is available.
func setupLiveRedis(t *testing.T) *KVStorage {
	t.Helper()

	addr := liveRedisAddr(t)

	prefix := fmt.Sprintf("niftyscope-test-%d:", time.Now().UnixNano())
	mgr, err := NewManager(common.NewSilentLogger(), &config.RedisConfig{Addr: addr, Prefix: prefix})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	kv := mgr.KeyValueStorage().(*KVStorage)
	t.Cleanup(func() {
		all, _ := kv.GetAll(context.Background())
		for k := range all {
			kv.Delete(context.Background(), k)
		}
		mgr.Close()
	})
	return kv
}

func TestRedisKey_UsesPrefix(t *testing.T) {
	kv := NewKVStorage(nil, "niftyscope:", common.NewSilentLogger())
	if got := kv.redisKey("watchlist"); got != "niftyscope:watchlist" {
		t.Errorf("expected niftyscope:watchlist, got %s", got)
	}
}

func TestNewManager_UnreachableRedis(t *testing.T) {
	_, err := NewManager(common.NewSilentLogger(), &config.RedisConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Error("expected connection error for unreachable redis")
	}
}

func TestKVStorage_LiveRoundTrip(t *testing.T) {
	kv := setupLiveRedis(t)
	ctx := context.Background()

	if _, err := kv.Get(ctx, "watchlist"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound before Set, got %v", err)
	}

	if err := kv.Set(ctx, "watchlist", `["TCS.NS"]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, err := kv.Get(ctx, "watchlist")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != `["TCS.NS"]` {
		t.Errorf("unexpected value %s", val)
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if all["watchlist"] != `["TCS.NS"]` {
		t.Errorf("expected GetAll to strip prefix, got %v", all)
	}

	if err := kv.Delete(ctx, "watchlist"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := kv.Delete(ctx, "watchlist"); err != nil {
		t.Errorf("second Delete should not error: %v", err)
	}
}
