package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics はバッファとプールの動作を収集する
type Metrics struct {
	produced   atomic.Uint64
	consumed   atomic.Uint64
	fullWaits  atomic.Uint64
	emptyWaits atomic.Uint64
	submitted  atomic.Uint64
	rejected   atomic.Uint64
	abandoned  atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	maxDepth          int
	latencies         []time.Duration
	maxLatencySamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return &Metrics{
		startTime:         time.Now(),
		latencies:         make([]time.Duration, 0, 1000),
		maxLatencySamples: 1000,
	}
}

// RecordProduced は投入されたメッセージを記録する
// depthは投入直後のバッファ内メッセージ数
func (m *Metrics) RecordProduced(depth int) {
	m.produced.Add(1)
	m.observeDepth(depth)
}

// RecordConsumed は取り出されたメッセージを記録する
func (m *Metrics) RecordConsumed(depth int) {
	m.consumed.Add(1)
	m.observeDepth(depth)
}

// RecordFullWait は満杯待ちの発生を記録する
func (m *Metrics) RecordFullWait() {
	m.fullWaits.Add(1)
}

// RecordEmptyWait は空待ちの発生を記録する
func (m *Metrics) RecordEmptyWait() {
	m.emptyWaits.Add(1)
}

// RecordSubmitted は受理されたタスクを記録する
func (m *Metrics) RecordSubmitted() {
	m.submitted.Add(1)
}

// RecordRejected は拒否されたタスク投入を記録する
func (m *Metrics) RecordRejected() {
	m.rejected.Add(1)
}

// RecordAbandoned は完了前に放棄されたタスクを記録する
func (m *Metrics) RecordAbandoned() {
	m.abandoned.Add(1)
}

// RecordSession はクライアントセッションの所要時間を記録する
func (m *Metrics) RecordSession(latency time.Duration) {
	m.mu.Lock()
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// observeDepth は観測されたバッファ深さの最大値を更新する
func (m *Metrics) observeDepth(depth int) {
	m.mu.Lock()
	if depth > m.maxDepth {
		m.maxDepth = depth
	}
	m.mu.Unlock()
}

// Produced は投入されたメッセージ数を返す
func (m *Metrics) Produced() uint64 {
	return m.produced.Load()
}

// Consumed は取り出されたメッセージ数を返す
func (m *Metrics) Consumed() uint64 {
	return m.consumed.Load()
}

// Submitted は受理されたタスク数を返す
func (m *Metrics) Submitted() uint64 {
	return m.submitted.Load()
}

// Rejected は拒否されたタスク数を返す
func (m *Metrics) Rejected() uint64 {
	return m.rejected.Load()
}

// Abandoned は放棄されたタスク数を返す
func (m *Metrics) Abandoned() uint64 {
	return m.abandoned.Load()
}

// MaxDepth は観測されたバッファ深さの最大値を返す
func (m *Metrics) MaxDepth() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxDepth
}

// AverageSession は平均セッション時間を返す（サンプルベース）
func (m *Metrics) AverageSession() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range m.latencies {
		total += l
	}
	return total / time.Duration(len(m.latencies))
}

// P99Session はP99セッション時間を返す（サンプルベース）
func (m *Metrics) P99Session() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Produced       uint64
	Consumed       uint64
	FullWaits      uint64
	EmptyWaits     uint64
	Submitted      uint64
	Rejected       uint64
	Abandoned      uint64
	MaxDepth       int
	AverageSession time.Duration
	P99Session     time.Duration
	Elapsed        time.Duration
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Produced:       m.Produced(),
		Consumed:       m.Consumed(),
		FullWaits:      m.fullWaits.Load(),
		EmptyWaits:     m.emptyWaits.Load(),
		Submitted:      m.Submitted(),
		Rejected:       m.Rejected(),
		Abandoned:      m.Abandoned(),
		MaxDepth:       m.MaxDepth(),
		AverageSession: m.AverageSession(),
		P99Session:     m.P99Session(),
		Elapsed:        time.Since(m.startTime),
	}
}
