package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"msgflow/internal/buffer"
	"msgflow/internal/logger"
)

// ProcessFunc は取り出したメッセージの処理戦略
type ProcessFunc func(msg string)

// Dispatcher は共有バッファを消費し続ける専用コンシューマー
//
// ワーカープールとは独立した1本のループで、プールとの同期点は
// 共有バッファのみ。期待メッセージ数を消費し終えるか、ctxが
// キャンセルされると停止する。
type Dispatcher struct {
	buf      *buffer.Buffer
	expect   int
	interval time.Duration
	process  ProcessFunc

	processed atomic.Uint64
	wg        sync.WaitGroup
	started   atomic.Bool
}

// New は新しいDispatcherを作成する
// expectは消費するメッセージ数。processがnilの場合はログ出力のみ行う
func New(buf *buffer.Buffer, expect int, interval time.Duration, process ProcessFunc) *Dispatcher {
	return &Dispatcher{
		buf:      buf,
		expect:   expect,
		interval: interval,
		process:  process,
	}
}

// Start は消費ループを起動する（冪等）
func (d *Dispatcher) Start(ctx context.Context) {
	if d.started.Swap(true) {
		return
	}

	d.wg.Add(1)
	go d.loop(ctx)
}

// loop は消費ループ本体
func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	logger.Info("dispatcher", "draining %d messages from shared buffer", d.expect)

	for i := 0; i < d.expect; i++ {
		msg, err := d.buf.Take(ctx, "dispatcher")
		if err != nil {
			logger.Warn("dispatcher", "stopping after %d/%d messages: %v", i, d.expect, err)
			return
		}

		if d.process != nil {
			d.process(msg)
		} else {
			logger.Info("dispatcher", "processing: %s", msg)
		}
		d.processed.Add(1)

		// 処理時間の模擬もバッファ操作の外で行う
		select {
		case <-time.After(d.interval):
		case <-ctx.Done():
			logger.Warn("dispatcher", "stopping after %d/%d messages: %v", i+1, d.expect, ctx.Err())
			return
		}
	}

	logger.Info("dispatcher", "all %d messages processed", d.expect)
}

// Wait はループの終了までブロックする
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Processed は処理済みメッセージ数を返す
func (d *Dispatcher) Processed() uint64 {
	return d.processed.Load()
}
