package buffer

import (
	"context"
	"fmt"

	"msgflow/internal/logger"
	"msgflow/internal/metrics"
)

// Buffer は固定容量のスレッドセーフなFIFOメッセージキュー
//
// 容量いっぱいのときPutは空きが出るまで、空のときTakeはメッセージが
// 届くまで呼び出し側をブロックする。待機はチャネルのselectで行うため
// CPUを消費せず、キャンセルされても内部状態が壊れることはない。
type Buffer struct {
	ch       chan string
	capacity int
	metrics  *metrics.Metrics
}

// New は指定容量のバッファを作成する
// 容量が1未満の場合は設定エラーとして拒否する
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("buffer capacity must be at least 1, got %d", capacity)
	}
	return &Buffer{
		ch:       make(chan string, capacity),
		capacity: capacity,
	}, nil
}

// SetMetrics は計測先を設定する（nilで計測なし）
func (b *Buffer) SetMetrics(m *metrics.Metrics) {
	b.metrics = m
}

// Put はメッセージを末尾に追加する
// バッファが満杯の間はブロックし、待機中にctxがキャンセルされた
// 場合のみエラーを返す。メッセージを落としたり並べ替えたりしない。
func (b *Buffer) Put(ctx context.Context, actor, msg string) error {
	select {
	case b.ch <- msg:
		b.recordProduced(actor, msg)
		return nil
	default:
	}

	// 満杯：空きが出るまで待つ
	logger.Info(actor, "buffer full (%d/%d), waiting for space...", b.capacity, b.capacity)
	if b.metrics != nil {
		b.metrics.RecordFullWait()
	}

	select {
	case b.ch <- msg:
		b.recordProduced(actor, msg)
		return nil
	case <-ctx.Done():
		logger.Warn(actor, "put abandoned while waiting for space: %v", ctx.Err())
		return ctx.Err()
	}
}

// Take は先頭のメッセージを取り出して返す
// バッファが空の間はブロックし、待機中にctxがキャンセルされた
// 場合のみエラーを返す。取り出し順は常に投入順と一致する。
func (b *Buffer) Take(ctx context.Context, actor string) (string, error) {
	select {
	case msg := <-b.ch:
		b.recordConsumed(actor, msg)
		return msg, nil
	default:
	}

	// 空：メッセージが届くまで待つ
	logger.Info(actor, "buffer empty, waiting for messages...")
	if b.metrics != nil {
		b.metrics.RecordEmptyWait()
	}

	select {
	case msg := <-b.ch:
		b.recordConsumed(actor, msg)
		return msg, nil
	case <-ctx.Done():
		logger.Warn(actor, "take abandoned while waiting for messages: %v", ctx.Err())
		return "", ctx.Err()
	}
}

// Len は現在のメッセージ数を返す
// 返った直後には変わっている可能性があるため参考値として扱うこと
func (b *Buffer) Len() int {
	return len(b.ch)
}

// Cap は最大容量を返す
func (b *Buffer) Cap() int {
	return b.capacity
}

func (b *Buffer) recordProduced(actor, msg string) {
	depth := len(b.ch)
	logger.Info(actor, "message queued: %q (depth %d/%d)", msg, depth, b.capacity)
	if b.metrics != nil {
		b.metrics.RecordProduced(depth)
	}
}

func (b *Buffer) recordConsumed(actor, msg string) {
	depth := len(b.ch)
	logger.Info(actor, "message taken: %q (remaining %d)", msg, depth)
	if b.metrics != nil {
		b.metrics.RecordConsumed(depth)
	}
}
