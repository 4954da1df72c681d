package middleware

import (
	"sync"
	"testing"
	"time"
)

func TestSyncRateLimiter_Check(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := AccountSyncKey(1, SyncTypeMerchant)

	// 首次执行放行
	result := limiter.Check(key, 1*time.Minute)
	if !result.Allowed {
		t.Fatal("首次检查应该放行")
	}

	// 冷却期内拒绝
	result = limiter.Check(key, 1*time.Minute)
	if result.Allowed {
		t.Fatal("冷却期内应该被拒绝")
	}
	if result.RetryAfter <= 0 || result.RetryAfter > 1*time.Minute {
		t.Errorf("RetryAfter = %v, 应在 (0, 1m] 区间", result.RetryAfter)
	}

	// 不同账号互不影响
	other := limiter.Check(AccountSyncKey(2, SyncTypeMerchant), 1*time.Minute)
	if !other.Allowed {
		t.Error("不同账号的限流应相互独立")
	}

	// 不同同步类型互不影响
	ads := limiter.Check(AccountSyncKey(1, SyncTypeAds), 1*time.Minute)
	if !ads.Allowed {
		t.Error("不同同步类型的限流应相互独立")
	}
}

func TestSyncRateLimiter_CheckOnly(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := AccountSyncKey(1, SyncTypeSuggest)

	// CheckOnly 不更新时间
	if !limiter.CheckOnly(key, 1*time.Minute).Allowed {
		t.Fatal("未执行过的 key 应放行")
	}
	if !limiter.CheckOnly(key, 1*time.Minute).Allowed {
		t.Fatal("CheckOnly 不应占用配额")
	}

	limiter.MarkExecuted(key)
	if limiter.CheckOnly(key, 1*time.Minute).Allowed {
		t.Error("MarkExecuted 后冷却期内应被拒绝")
	}
}

func TestSyncRateLimiter_Reset(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := AccountSyncKey(1, SyncTypeMerchant)

	limiter.Check(key, 10*time.Minute)
	if limiter.Check(key, 10*time.Minute).Allowed {
		t.Fatal("冷却期内应被拒绝")
	}

	limiter.Reset(key)
	if !limiter.Check(key, 10*time.Minute).Allowed {
		t.Error("Reset 后应重新放行")
	}
}

func TestSyncRateLimiter_Expired(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := AccountSyncKey(1, SyncTypeMerchant)

	limiter.Check(key, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if !limiter.Check(key, 10*time.Millisecond).Allowed {
		t.Error("冷却期已过应放行")
	}
}

func TestSyncRateLimiter_Concurrent(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := AccountSyncKey(1, SyncTypeMerchant)

	var allowed int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check(key, 1*time.Minute).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 1 {
		t.Errorf("并发抢占同一 key 时只应放行 1 次, got %d", allowed)
	}
}

func TestGetInterval(t *testing.T) {
	if GetInterval(SyncTypeMerchant) != 10*time.Minute {
		t.Error("Merchant 同步默认间隔应为 10 分钟")
	}
	if GetInterval(SyncTypeSuggest) != 10*time.Second {
		t.Error("AI 生成默认间隔应为 10 秒")
	}
	if GetInterval(SyncType("unknown")) != 5*time.Minute {
		t.Error("未知类型应回落到 5 分钟")
	}
}
