package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"msgflow/internal/logger"
)

// ErrPoolClosed はシャットダウン開始後のSubmitに対して返される
var ErrPoolClosed = errors.New("worker pool is not accepting tasks")

// Task はワーカーが実行するタスクを表す
// 強制終了時にはctxがキャンセルされるため、ブロックする処理は
// ctxを監視すること
type Task func(ctx context.Context)

// State はプールのライフサイクル状態を表す
type State int32

const (
	// StateRunning はタスクを受理している状態
	StateRunning State = iota
	// StateDraining は受理を止め、受理済みタスクを処理中の状態
	StateDraining
	// StateTerminated は全ワーカーが停止した状態
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Config はワーカープールの設定
type Config struct {
	Workers     int // ワーカー数
	QueueFactor int // キューサイズ = Workers * QueueFactor
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Workers:     5,
		QueueFactor: 100,
	}
}

// Pool は固定数のワーカーでタスクを並行実行する
//
// 同時に実行されるタスクは最大Workers個。Shutdown後は受理済みの
// タスクだけを処理し（Draining）、全て完了するとTerminatedになる。
type Pool struct {
	workers int
	tasks   chan Task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	state   atomic.Int32
	started bool
	mu      sync.RWMutex
}

// New は指定ワーカー数のプールを作成する
// ワーカー数が1未満の場合は設定エラーとして拒否する
func New(workers int) (*Pool, error) {
	config := DefaultConfig()
	config.Workers = workers
	return NewWithConfig(config)
}

// NewWithConfig は設定を指定してプールを作成する
func NewWithConfig(config Config) (*Pool, error) {
	if config.Workers < 1 {
		return nil, fmt.Errorf("pool workers must be at least 1, got %d", config.Workers)
	}
	queueFactor := config.QueueFactor
	if queueFactor < 1 {
		queueFactor = 100
	}
	return &Pool{
		workers: config.Workers,
		tasks:   make(chan Task, config.Workers*queueFactor),
		done:    make(chan struct{}),
	}, nil
}

// Start はワーカーを起動する（冪等）
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true
	p.state.Store(int32(StateRunning))

	for i := range p.workers {
		p.wg.Add(1)
		go p.worker(i + 1)
	}

	go func() {
		p.wg.Wait()
		p.state.Store(int32(StateTerminated))
		close(p.done)
		logger.Info("pool", "all workers stopped (state: %s)", StateTerminated)
	}()

	logger.Info("pool", "started with %d workers (state: %s)", p.workers, StateRunning)
}

// worker は個々のワーカーゴルーチン
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	name := fmt.Sprintf("worker-%d", id)
	for {
		select {
		case <-p.ctx.Done():
			logger.Warn(name, "abandoning remaining work: %v", p.ctx.Err())
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			// キャンセル済みなら取り出したタスクも実行せず放棄する
			select {
			case <-p.ctx.Done():
				logger.Warn(name, "task abandoned before execution")
				return
			default:
			}
			task(p.ctx)
		}
	}
}

// Submit はタスクをキューに追加する
// Running状態でのみ受理し、それ以外はErrPoolClosedを返す
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started || p.State() != StateRunning {
		return ErrPoolClosed
	}

	p.tasks <- task
	return nil
}

// Shutdown は新規タスクの受理を停止する（冪等）
// 受理済みタスクの処理は継続される
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.State() != StateRunning {
		return
	}

	p.state.Store(int32(StateDraining))
	close(p.tasks)
	logger.Info("pool", "state: %s -> %s (%d queued tasks remaining)",
		StateRunning, StateDraining, len(p.tasks))
}

// AwaitTermination は全タスク完了かタイムアウトまでブロックする
// 期限内にTerminatedへ到達した場合にtrueを返す
func (p *Pool) AwaitTermination(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return true
	case <-timer.C:
		logger.Warn("pool", "termination not reached within %v", timeout)
		return false
	}
}

// Abandon は残りのタスクを強制的に放棄する
// 実行中・待機中のタスクのctxをキャンセルする。通常はShutdownと
// AwaitTerminationのタイムアウト後に呼ぶ
func (p *Pool) Abandon() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return
	}

	logger.Warn("pool", "forced termination: abandoning outstanding tasks")
	p.cancel()
}

// State は現在の状態を返す
func (p *Pool) State() State {
	return State(p.state.Load())
}

// Workers はワーカー数を返す
func (p *Pool) Workers() int {
	return p.workers
}

// QueueDepth は現在キューにあるタスク数を返す
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}
