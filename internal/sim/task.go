package sim

import (
	"context"
	"fmt"
	"time"

	"msgflow/internal/buffer"
	"msgflow/internal/logger"
)

// Task は1つの模擬クライアントセッションを表す
//
// セッションはちょうど1回だけ共有バッファへメッセージを投入し、
// その後レイテンシを模擬して完了する。リトライはしない。強制終了で
// 待機中に放棄された場合、投入が済んでいるかどうかは保証されない
// （受け入れ済みの制約）。
type Task struct {
	id      int
	payload string
	delay   time.Duration
	buf     *buffer.Buffer
}

// NewTask は新しいクライアントタスクを作成する
// bufは借用であり、タスクより長く生存しなければならない
func NewTask(id int, buf *buffer.Buffer, payload string, delay time.Duration) *Task {
	return &Task{
		id:      id,
		payload: payload,
		delay:   delay,
		buf:     buf,
	}
}

// ID はタスク識別子を返す
func (t *Task) ID() int {
	return t.id
}

// Run はセッションを実行する
// 待機中にctxがキャンセルされた場合のみエラーを返す
func (t *Task) Run(ctx context.Context) error {
	name := fmt.Sprintf("client-%d", t.id)
	logger.Info(name, "client connected")

	if err := t.buf.Put(ctx, name, t.payload); err != nil {
		logger.Warn(name, "session abandoned: %v", err)
		return err
	}

	// レイテンシはバッファの臨界区間の外で模擬する
	select {
	case <-time.After(t.delay):
	case <-ctx.Done():
		logger.Warn(name, "session interrupted: %v", ctx.Err())
		return ctx.Err()
	}

	logger.Info(name, "client disconnected")
	return nil
}
