package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter 按 IP 的固定窗口限流
type RateLimiter struct {
	mu             sync.Mutex
	ipRequestCount map[string]int
	ipLastReset    map[string]time.Time

	limit  int           // 每个 IP 每个窗口允许的最大请求次数
	window time.Duration // 请求计数的时间窗口
	now    func() time.Time
}

// NewRateLimiter limit<=0 表示不限流
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		ipRequestCount: make(map[string]int),
		ipLastReset:    make(map[string]time.Time),
		limit:          limit,
		window:         window,
		now:            time.Now,
	}
}

// Allow 该 IP 在当前窗口内是否还能请求
func (rl *RateLimiter) Allow(clientIP string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// 如果该 IP 不存在记录，或者上次记录的时间已经超过了窗口，则重置计数
	if last, ok := rl.ipLastReset[clientIP]; !ok || now.Sub(last) > rl.window {
		rl.ipRequestCount[clientIP] = 0
		rl.ipLastReset[clientIP] = now
	}
	rl.ipRequestCount[clientIP]++
	return rl.ipRequestCount[clientIP] <= rl.limit
}

// RateLimit 是一个中间件，超过阈值返回 429 Too Many Requests
func (rl *RateLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests","text_code":"RATE_LIMITED","category":"rate_limit"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup 清理超过两个窗口没有请求的 IP 记录
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for ip, last := range rl.ipLastReset {
		if now.Sub(last) > 2*rl.window {
			delete(rl.ipLastReset, ip)
			delete(rl.ipRequestCount, ip)
			removed++
		}
	}
	return removed
}

// StartIPCleanup 启动后台清理，stop 关闭后退出
func (rl *RateLimiter) StartIPCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

// clientIP 取 RemoteAddr 的主机部分，兼容 IPv6
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
