package sim

import (
	"context"
	"fmt"
	"time"

	"msgflow/internal/buffer"
	"msgflow/internal/logger"
	"msgflow/internal/metrics"
	"msgflow/internal/pool"

	"github.com/brianvoe/gofakeit/v7"
)

// Config はSimulatorの設定
type Config struct {
	Clients         int           // 接続するクライアント数
	BaseDelay       time.Duration // セッション遅延の基準値
	DelayStep       time.Duration // クライアントIDごとの遅延増分
	ConnectInterval time.Duration // 接続間隔
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Clients:         8,
		BaseDelay:       500 * time.Millisecond,
		DelayStep:       100 * time.Millisecond,
		ConnectInterval: 200 * time.Millisecond,
	}
}

// Simulator はクライアント接続を模擬し、タスクをプールへ投入する
type Simulator struct {
	config  Config
	buf     *buffer.Buffer
	pool    *pool.Pool
	metrics *metrics.Metrics
}

// New は新しいSimulatorを作成する
func New(buf *buffer.Buffer, p *pool.Pool, m *metrics.Metrics, config Config) *Simulator {
	return &Simulator{
		config:  config,
		buf:     buf,
		pool:    p,
		metrics: m,
	}
}

// Run はクライアントを順次接続させる
// 全クライアントの投入が終わるか、ctxがキャンセルされるか、
// プールが受理を止めるまで続く
func (s *Simulator) Run(ctx context.Context) error {
	logger.Info("simulator", "simulating %d client connections...", s.config.Clients)

	for i := 1; i <= s.config.Clients; i++ {
		select {
		case <-ctx.Done():
			logger.Warn("simulator", "stopping: %v", ctx.Err())
			return ctx.Err()
		default:
		}

		task := NewTask(i, s.buf, s.payload(i), s.config.BaseDelay+time.Duration(i)*s.config.DelayStep)
		if err := s.submit(task); err != nil {
			return err
		}

		select {
		case <-time.After(s.config.ConnectInterval):
		case <-ctx.Done():
			logger.Warn("simulator", "stopping: %v", ctx.Err())
			return ctx.Err()
		}
	}

	logger.Info("simulator", "all %d clients submitted", s.config.Clients)
	return nil
}

// submit はタスクをジョブに包んでプールへ渡す
func (s *Simulator) submit(task *Task) error {
	job := func(ctx context.Context) {
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			if s.metrics != nil {
				s.metrics.RecordAbandoned()
			}
			return
		}
		if s.metrics != nil {
			s.metrics.RecordSession(time.Since(start))
		}
	}

	if err := s.pool.Submit(job); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRejected()
		}
		logger.Error("simulator", "client %d rejected: %v", task.ID(), err)
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordSubmitted()
	}
	return nil
}

// payload はクライアントの送信内容を生成する
func (s *Simulator) payload(id int) string {
	return fmt.Sprintf("client %d: %s", id, gofakeit.Sentence(4))
}
