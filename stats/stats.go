// stats/stats.go
// API 调用计数、提现结果按失败类别计数、处理耗时分位

package stats

import (
	"sort"
	"sync"
	"time"
)

// Outcome 提现结果类别（成功为 "ok"，失败为错误类别名）
const OutcomeOK = "ok"

// Stats 进程内统计，零值不可用，需 NewStats
type Stats struct {
	statsLock     sync.RWMutex
	apiCallCounts map[string]uint64
	outcomes      map[string]uint64
	latency       map[string]*ring
	ringSize      int
}

// Snapshot 某一时刻的统计副本
type Snapshot struct {
	APICalls map[string]uint64         `json:"api_calls"`
	Outcomes map[string]uint64         `json:"withdraw_outcomes"`
	Latency  map[string]LatencySummary `json:"latency"`
}

// LatencySummary 单个接口最近样本的耗时分位
type LatencySummary struct {
	Samples int           `json:"samples"`
	P50     time.Duration `json:"p50"`
	P99     time.Duration `json:"p99"`
	Max     time.Duration `json:"max"`
}

type ring struct {
	buf  []time.Duration
	next int
	full bool
}

func NewStats() *Stats {
	return &Stats{
		apiCallCounts: make(map[string]uint64),
		outcomes:      make(map[string]uint64),
		latency:       make(map[string]*ring),
		ringSize:      512,
	}
}

// 记录API调用
func (h *Stats) RecordAPICall(apiName string) {
	h.statsLock.Lock()
	defer h.statsLock.Unlock()
	h.apiCallCounts[apiName]++
}

// RecordOutcome 记录一次提现结果
func (h *Stats) RecordOutcome(outcome string) {
	h.statsLock.Lock()
	defer h.statsLock.Unlock()
	h.outcomes[outcome]++
}

// RecordLatency 记录一次处理耗时，只保留最近 ringSize 个样本
func (h *Stats) RecordLatency(apiName string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	h.statsLock.Lock()
	defer h.statsLock.Unlock()

	r, ok := h.latency[apiName]
	if !ok {
		r = &ring{buf: make([]time.Duration, h.ringSize)}
		h.latency[apiName] = r
	}
	r.buf[r.next] = d
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// 获取API调用统计
func (h *Stats) GetAPICallStats() map[string]uint64 {
	h.statsLock.RLock()
	defer h.statsLock.RUnlock()
	return copyCounts(h.apiCallCounts)
}

// Snapshot 统计副本
func (h *Stats) Snapshot() Snapshot {
	h.statsLock.RLock()
	defer h.statsLock.RUnlock()

	lat := make(map[string]LatencySummary, len(h.latency))
	for name, r := range h.latency {
		n := r.next
		if r.full {
			n = len(r.buf)
		}
		if n == 0 {
			continue
		}
		vals := make([]time.Duration, n)
		copy(vals, r.buf[:n])
		sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
		lat[name] = LatencySummary{
			Samples: n,
			P50:     vals[(n-1)/2],
			P99:     vals[(n-1)*99/100],
			Max:     vals[n-1],
		}
	}

	return Snapshot{
		APICalls: copyCounts(h.apiCallCounts),
		Outcomes: copyCounts(h.outcomes),
		Latency:  lat,
	}
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
