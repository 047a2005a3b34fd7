package handler

import "sync/atomic"

// Stats 处理管线的插桩计数器
type Stats struct {
	Intercepted   atomic.Int64
	Ignored       atomic.Int64
	PassedThrough atomic.Int64
	Mutated       atomic.Int64
	Observed      atomic.Int64
	Aborted       atomic.Int64
}

// StatsSnapshot 计数器的一致性快照
type StatsSnapshot struct {
	Intercepted   int64 `json:"intercepted"`
	Ignored       int64 `json:"ignored"`
	PassedThrough int64 `json:"passedThrough"`
	Mutated       int64 `json:"mutated"`
	Observed      int64 `json:"observed"`
	Aborted       int64 `json:"aborted"`
}

// Stats 返回当前计数快照
func (h *Handler) Stats() StatsSnapshot {
	return StatsSnapshot{
		Intercepted:   h.stats.Intercepted.Load(),
		Ignored:       h.stats.Ignored.Load(),
		PassedThrough: h.stats.PassedThrough.Load(),
		Mutated:       h.stats.Mutated.Load(),
		Observed:      h.stats.Observed.Load(),
		Aborted:       h.stats.Aborted.Load(),
	}
}
