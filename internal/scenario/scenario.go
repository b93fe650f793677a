package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"msgflow/internal/buffer"
	"msgflow/internal/dispatch"
	"msgflow/internal/events"
	"msgflow/internal/logger"
	"msgflow/internal/metrics"
	"msgflow/internal/pool"
	"msgflow/internal/sim"
)

// Config はシナリオの設定
type Config struct {
	Name        string        // シナリオ名
	Description string        // 説明
	StagePause  time.Duration // ステージ間の待機時間

	// ステージ有効化
	EnableGreeters   bool // 並行ゴルーチンのデモ
	EnableBufferDemo bool // 生産者/消費者のデモ
	EnableClientDemo bool // プールによるクライアント模擬

	// greeterステージ設定
	GreeterCount      int           // ゴルーチン数
	GreeterIterations int           // 各ゴルーチンの反復回数
	GreeterInterval   time.Duration // 基準反復間隔
	GreeterStep       time.Duration // ゴルーチンごとの間隔増分

	// bufferステージ設定
	BufferCapacity   int           // バッファ容量
	ProducerMessages int           // 生産するメッセージ数
	ConsumerMessages int           // 消費するメッセージ数
	ProduceInterval  time.Duration // 生産間隔
	ConsumeInterval  time.Duration // 消費間隔

	// clientステージ設定
	PoolWorkers          int           // ワーカー数
	ClientCount          int           // 模擬クライアント数
	ClientBufferCapacity int           // クライアント用バッファ容量
	ConnectInterval      time.Duration // クライアント接続間隔
	ClientBaseDelay      time.Duration // セッション遅延の基準値
	ClientDelayStep      time.Duration // IDごとの遅延増分
	ProcessInterval      time.Duration // ディスパッチャーの処理間隔
	ShutdownTimeout      time.Duration // プール終了待ちの上限
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:        "default",
		Description: "Default scenario",
		StagePause:  time.Second,

		EnableGreeters:   true,
		EnableBufferDemo: true,
		EnableClientDemo: true,

		GreeterCount:      3,
		GreeterIterations: 5,
		GreeterInterval:   500 * time.Millisecond,
		GreeterStep:       100 * time.Millisecond,

		BufferCapacity:   3,
		ProducerMessages: 7,
		ConsumerMessages: 7,
		ProduceInterval:  400 * time.Millisecond,
		ConsumeInterval:  800 * time.Millisecond,

		PoolWorkers:          5,
		ClientCount:          8,
		ClientBufferCapacity: 10,
		ConnectInterval:      200 * time.Millisecond,
		ClientBaseDelay:      500 * time.Millisecond,
		ClientDelayStep:      100 * time.Millisecond,
		ProcessInterval:      400 * time.Millisecond,
		ShutdownTimeout:      30 * time.Second,
	}
}

// Validate は設定の整合性を検証する
func (c Config) Validate() error {
	if c.EnableGreeters {
		if c.GreeterCount < 1 {
			return fmt.Errorf("greeter count must be at least 1, got %d", c.GreeterCount)
		}
		if c.GreeterIterations < 1 {
			return fmt.Errorf("greeter iterations must be at least 1, got %d", c.GreeterIterations)
		}
	}

	if c.EnableBufferDemo {
		if c.BufferCapacity < 1 {
			return fmt.Errorf("buffer capacity must be at least 1, got %d", c.BufferCapacity)
		}
		if c.ProducerMessages < 1 {
			return fmt.Errorf("producer messages must be at least 1, got %d", c.ProducerMessages)
		}
		if c.ConsumerMessages > c.ProducerMessages {
			return fmt.Errorf("consumer messages (%d) cannot exceed producer messages (%d)",
				c.ConsumerMessages, c.ProducerMessages)
		}
		// 消費されない残りが容量を超えると生産者が永久にブロックする
		if c.ProducerMessages-c.ConsumerMessages > c.BufferCapacity {
			return fmt.Errorf("unconsumed messages (%d) exceed buffer capacity (%d): producer would block forever",
				c.ProducerMessages-c.ConsumerMessages, c.BufferCapacity)
		}
	}

	if c.EnableClientDemo {
		if c.PoolWorkers < 1 {
			return fmt.Errorf("pool workers must be at least 1, got %d", c.PoolWorkers)
		}
		if c.ClientCount < 1 {
			return fmt.Errorf("client count must be at least 1, got %d", c.ClientCount)
		}
		if c.ClientBufferCapacity < 1 {
			return fmt.Errorf("client buffer capacity must be at least 1, got %d", c.ClientBufferCapacity)
		}
		if c.ShutdownTimeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive, got %v", c.ShutdownTimeout)
		}
	}

	return nil
}

// StageStatus はステージの終了状態
type StageStatus string

const (
	StageClean       StageStatus = "clean"
	StageForced      StageStatus = "forced"
	StageInterrupted StageStatus = "interrupted"
	StageSkipped     StageStatus = "skipped"
)

// StageResult は1ステージの実行結果
type StageResult struct {
	Name    string
	Status  StageStatus
	Elapsed time.Duration
}

// Result はシナリオ実行結果
type Result struct {
	ScenarioName string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration

	Stages []StageResult

	// メトリクス
	Produced   uint64
	Consumed   uint64
	FullWaits  uint64
	EmptyWaits uint64
	MaxDepth   int

	// プール統計
	Submitted      uint64
	Rejected       uint64
	Abandoned      uint64
	AverageSession time.Duration

	CleanShutdown bool
}

// Engine はシナリオ実行エンジン
type Engine struct {
	config   Config
	eventBus *events.Bus
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	running bool
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config:  config,
		metrics: metrics.New(),
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// Run はシナリオを実行する
// 有効なステージを順に実行し、ステージ間でStagePauseだけ待つ
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("scenario is already running")
	}
	e.running = true
	e.metrics = metrics.New()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario config: %w", err)
	}

	logger.Info("", "=== Scenario '%s' started ===", e.config.Name)
	logger.Info("", "Description: %s", e.config.Description)

	result := &Result{
		ScenarioName:  e.config.Name,
		StartTime:     time.Now(),
		CleanShutdown: true,
	}

	stages := []struct {
		name    string
		enabled bool
		run     func(context.Context, *Result) (StageStatus, error)
	}{
		{"greeters", e.config.EnableGreeters, e.runGreeters},
		{"producer-consumer", e.config.EnableBufferDemo, e.runBufferDemo},
		{"clients", e.config.EnableClientDemo, e.runClientDemo},
	}

	first := true
	for _, st := range stages {
		if !st.enabled {
			result.Stages = append(result.Stages, StageResult{Name: st.name, Status: StageSkipped})
			continue
		}

		if !first {
			if err := e.pause(ctx); err != nil {
				e.finish(result)
				return result, err
			}
		}
		first = false

		logger.Info("", "--- Stage '%s' ---", st.name)
		e.publish(events.NewStageStartEvent(st.name))

		stageStart := time.Now()
		status, err := st.run(ctx, result)
		result.Stages = append(result.Stages, StageResult{
			Name:    st.name,
			Status:  status,
			Elapsed: time.Since(stageStart),
		})
		e.publish(events.NewStageEndEvent(st.name, string(status)))

		if err != nil {
			logger.Error("", "stage '%s' aborted: %v", st.name, err)
			e.finish(result)
			return result, err
		}
	}

	e.finish(result)
	logger.Info("", "=== Scenario '%s' completed ===", e.config.Name)

	return result, nil
}

// pause はステージ間の待機を行う
func (e *Engine) pause(ctx context.Context) error {
	select {
	case <-time.After(e.config.StagePause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish は結果の集計を確定させる
func (e *Engine) finish(result *Result) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	snapshot := e.metrics.Snapshot()
	result.Produced = snapshot.Produced
	result.Consumed = snapshot.Consumed
	result.FullWaits = snapshot.FullWaits
	result.EmptyWaits = snapshot.EmptyWaits
	result.MaxDepth = snapshot.MaxDepth
	result.Submitted = snapshot.Submitted
	result.Rejected = snapshot.Rejected
	result.Abandoned = snapshot.Abandoned
	result.AverageSession = snapshot.AverageSession

	for _, st := range result.Stages {
		if st.Status == StageForced || st.Status == StageInterrupted {
			result.CleanShutdown = false
		}
	}
}

// publish はバスが設定されていればイベントを配信する
func (e *Engine) publish(event events.Event) {
	if e.eventBus != nil {
		e.eventBus.Publish(event)
	}
}

// runGreeters は固定数のゴルーチンを並行実行するステージ
func (e *Engine) runGreeters(ctx context.Context, _ *Result) (StageStatus, error) {
	var wg sync.WaitGroup

	for i := 1; i <= e.config.GreeterCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			name := fmt.Sprintf("greeter-%d", id)
			interval := e.config.GreeterInterval + time.Duration(id-1)*e.config.GreeterStep

			for it := 1; it <= e.config.GreeterIterations; it++ {
				logger.Info(name, "iteration %d/%d", it, e.config.GreeterIterations)
				select {
				case <-time.After(interval):
				case <-ctx.Done():
					logger.Warn(name, "interrupted: %v", ctx.Err())
					return
				}
			}
			logger.Info(name, "finished")
		}(i)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return StageInterrupted, err
	}
	logger.Info("", "all %d greeters finished", e.config.GreeterCount)
	return StageClean, nil
}

// runBufferDemo は1生産者/1消費者でバッファを動かすステージ
func (e *Engine) runBufferDemo(ctx context.Context, _ *Result) (StageStatus, error) {
	buf, err := buffer.New(e.config.BufferCapacity)
	if err != nil {
		return StageInterrupted, err
	}
	buf.SetMetrics(e.metrics)

	logger.Info("", "shared buffer created (capacity %d)", buf.Cap())

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= e.config.ProducerMessages; i++ {
			msg := fmt.Sprintf("msg-%d", i)
			logger.Info("producer", "publishing %s", msg)
			if err := buf.Put(ctx, "producer", msg); err != nil {
				errCh <- err
				return
			}
			select {
			case <-time.After(e.config.ProduceInterval):
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		logger.Info("producer", "finished")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= e.config.ConsumerMessages; i++ {
			msg, err := buf.Take(ctx, "consumer")
			if err != nil {
				errCh <- err
				return
			}
			logger.Info("consumer", "received %s", msg)
			select {
			case <-time.After(e.config.ConsumeInterval):
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		logger.Info("consumer", "finished")
	}()

	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return StageInterrupted, err
	}
	return StageClean, nil
}

// runClientDemo はプールとディスパッチャーでクライアントを模擬するステージ
func (e *Engine) runClientDemo(ctx context.Context, _ *Result) (StageStatus, error) {
	buf, err := buffer.New(e.config.ClientBufferCapacity)
	if err != nil {
		return StageInterrupted, err
	}
	buf.SetMetrics(e.metrics)

	p, err := pool.New(e.config.PoolWorkers)
	if err != nil {
		return StageInterrupted, err
	}

	// ディスパッチャーはプールと独立に先に起動する
	// 全ワーカーが満杯のバッファで待っても必ず排出が進むようにする
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	d := dispatch.New(buf, e.config.ClientCount, e.config.ProcessInterval, nil)
	d.Start(dispatchCtx)

	p.Start(ctx)
	e.publish(events.NewPoolStateEvent(p.State().String()))

	simConfig := sim.Config{
		Clients:         e.config.ClientCount,
		BaseDelay:       e.config.ClientBaseDelay,
		DelayStep:       e.config.ClientDelayStep,
		ConnectInterval: e.config.ConnectInterval,
	}
	simulator := sim.New(buf, p, e.metrics, simConfig)

	simErr := simulator.Run(ctx)

	logger.Info("", "shutting down pool...")
	p.Shutdown()
	e.publish(events.NewPoolStateEvent(p.State().String()))

	status := StageClean
	if !p.AwaitTermination(e.config.ShutdownTimeout) {
		// タイムアウト：残りを強制放棄して先へ進む
		logger.Warn("", "TERMINATION FORCED: pool did not drain within %v", e.config.ShutdownTimeout)
		e.publish(events.NewForcedShutdownEvent(
			fmt.Sprintf("pool did not drain within %v", e.config.ShutdownTimeout)))
		p.Abandon()
		p.AwaitTermination(e.config.ShutdownTimeout)
		status = StageForced
	}
	e.publish(events.NewPoolStateEvent(p.State().String()))

	// 発行されなかったメッセージをディスパッチャーが待ち続けないようにする
	if status != StageClean || simErr != nil {
		stopDispatch()
	}
	d.Wait()

	if simErr != nil {
		return StageInterrupted, simErr
	}
	if status == StageClean {
		logger.Info("", "pool terminated cleanly")
	}
	return status, nil
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Metrics は現在のメトリクスのスナップショットを返す
func (e *Engine) Metrics() metrics.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metrics.Snapshot()
}

// Config は設定を返す
func (e *Engine) Config() Config {
	return e.config
}
