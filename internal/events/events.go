// Package events provides an event system for stage and pool lifecycle
// notifications.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventStageStart is emitted when a demo stage begins
	EventStageStart EventType = "stage_start"
	// EventStageEnd is emitted when a demo stage completes
	EventStageEnd EventType = "stage_end"
	// EventPoolState is emitted on a worker pool state transition
	EventPoolState EventType = "pool_state"
	// EventForcedShutdown is emitted when pool termination is forced
	EventForcedShutdown EventType = "forced_shutdown"
)

// Event はバスに流れる1件の通知
type Event struct {
	Type      EventType `json:"type"`
	Stage     string    `json:"stage,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStageStartEvent はステージ開始イベントを作成する
func NewStageStartEvent(stage string) Event {
	return Event{
		Type:      EventStageStart,
		Stage:     stage,
		Timestamp: time.Now(),
	}
}

// NewStageEndEvent はステージ終了イベントを作成する
func NewStageEndEvent(stage, detail string) Event {
	return Event{
		Type:      EventStageEnd,
		Stage:     stage,
		Detail:    detail,
		Timestamp: time.Now(),
	}
}

// NewPoolStateEvent はプール状態遷移イベントを作成する
func NewPoolStateEvent(state string) Event {
	return Event{
		Type:      EventPoolState,
		Detail:    state,
		Timestamp: time.Now(),
	}
}

// NewForcedShutdownEvent は強制終了イベントを作成する
func NewForcedShutdownEvent(detail string) Event {
	return Event{
		Type:      EventForcedShutdown,
		Detail:    detail,
		Timestamp: time.Now(),
	}
}
