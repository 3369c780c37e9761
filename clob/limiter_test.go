package clob

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTokenBucketLimiterSerializesWaiters(t *testing.T) {
	// rate 100/s，容量 1：三个并发请求至少要等两个补充周期（20ms）
	lim := NewTokenBucketLimiter(100, 1)
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lim.Wait(context.Background()); err != nil {
				t.Errorf("wait err: %v", err)
			}
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("3 waiters admitted in %v, limiter over-admits", elapsed)
	}
}

func TestTokenBucketLimiterCanceled(t *testing.T) {
	lim := NewTokenBucketLimiter(1, 1)
	if err := lim.Wait(context.Background()); err != nil { // 耗尽桶
		t.Fatalf("first wait err: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := lim.Wait(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
