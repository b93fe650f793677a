package scenario

import (
	"context"
	"strings"
	"testing"
	"time"

	"msgflow/internal/events"
	"msgflow/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Default.SetLevel(logger.LevelError)
	m.Run()
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Name != "default" {
		t.Errorf("expected name 'default', got '%s'", config.Name)
	}
	if config.BufferCapacity != 3 {
		t.Errorf("expected buffer capacity 3, got %d", config.BufferCapacity)
	}
	if config.PoolWorkers != 5 {
		t.Errorf("expected 5 pool workers, got %d", config.PoolWorkers)
	}
	if config.ClientCount != 8 {
		t.Errorf("expected 8 clients, got %d", config.ClientCount)
	}
	if !config.EnableGreeters || !config.EnableBufferDemo || !config.EnableClientDemo {
		t.Error("expected all stages enabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"zero buffer capacity", func(c *Config) { c.BufferCapacity = 0 }, true},
		{"zero pool workers", func(c *Config) { c.PoolWorkers = 0 }, true},
		{"zero clients", func(c *Config) { c.ClientCount = 0 }, true},
		{"zero greeters", func(c *Config) { c.GreeterCount = 0 }, true},
		{"consumer exceeds producer", func(c *Config) { c.ConsumerMessages = c.ProducerMessages + 1 }, true},
		{"unconsumed exceed capacity", func(c *Config) {
			c.ProducerMessages = 10
			c.ConsumerMessages = 2
		}, true},
		{"unconsumed within capacity", func(c *Config) {
			c.ProducerMessages = 7
			c.ConsumerMessages = 5
		}, false},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, true},
		{"disabled stage not validated", func(c *Config) {
			c.EnableBufferDemo = false
			c.BufferCapacity = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range ListPresets() {
		config, ok := GetPreset(name)
		if !ok {
			t.Errorf("preset %s not found", name)
		}
		if config.Name != name {
			t.Errorf("expected preset name %s, got %s", name, config.Name)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("preset %s is invalid: %v", name, err)
		}
	}

	if _, ok := GetPreset("nope"); ok {
		t.Error("expected unknown preset to be rejected")
	}
}

func TestNewEngine(t *testing.T) {
	engine := New(DefaultConfig())

	if engine == nil {
		t.Fatal("expected non-nil engine")
	}
	if engine.IsRunning() {
		t.Error("expected engine to not be running initially")
	}
}

func TestEngineRunQuick(t *testing.T) {
	config := QuickScenario()
	engine := New(config)

	bus := events.NewBus()
	engine.SetEventBus(bus)
	ch := bus.Subscribe()

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("failed to run scenario: %v", err)
	}

	if result.ScenarioName != "quick" {
		t.Errorf("expected scenario name 'quick', got '%s'", result.ScenarioName)
	}
	if !result.CleanShutdown {
		t.Error("expected clean shutdown")
	}

	expected := uint64(config.ProducerMessages + config.ClientCount)
	if result.Produced != expected {
		t.Errorf("expected %d produced, got %d", expected, result.Produced)
	}
	if result.Consumed != expected {
		t.Errorf("expected %d consumed, got %d", expected, result.Consumed)
	}
	if result.MaxDepth > config.ClientBufferCapacity {
		t.Errorf("max depth %d exceeds capacity %d", result.MaxDepth, config.ClientBufferCapacity)
	}
	if result.Submitted != uint64(config.ClientCount) {
		t.Errorf("expected %d submitted, got %d", config.ClientCount, result.Submitted)
	}
	if result.Rejected != 0 || result.Abandoned != 0 {
		t.Errorf("expected no rejected/abandoned tasks, got %d/%d", result.Rejected, result.Abandoned)
	}

	for _, st := range result.Stages {
		if st.Status != StageClean {
			t.Errorf("stage %s: expected clean, got %s", st.Name, st.Status)
		}
	}

	// Stage events must have been published
	sawStart := false
	for {
		select {
		case event := <-ch:
			if event.Type == events.EventStageStart {
				sawStart = true
			}
		default:
			if !sawStart {
				t.Error("expected stage_start events on the bus")
			}
			return
		}
	}
}

func TestEngineForcedShutdown(t *testing.T) {
	config := QuickScenario()
	config.EnableGreeters = false
	config.EnableBufferDemo = false
	config.PoolWorkers = 1
	config.ClientCount = 2
	config.ClientBaseDelay = 10 * time.Second // far beyond the timeout
	config.ClientDelayStep = 0
	config.ShutdownTimeout = 100 * time.Millisecond

	engine := New(config)
	start := time.Now()
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("forced shutdown must not fail the run: %v", err)
	}

	if time.Since(start) > 5*time.Second {
		t.Errorf("forced shutdown took too long: %v", time.Since(start))
	}
	if result.CleanShutdown {
		t.Error("expected forced termination to be reported")
	}

	var clientStage *StageResult
	for i := range result.Stages {
		if result.Stages[i].Name == "clients" {
			clientStage = &result.Stages[i]
		}
	}
	if clientStage == nil {
		t.Fatal("expected clients stage in result")
	}
	if clientStage.Status != StageForced {
		t.Errorf("expected forced stage status, got %s", clientStage.Status)
	}
	if result.Abandoned == 0 {
		t.Error("expected abandoned tasks to be counted")
	}
}

func TestEngineInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := New(QuickScenario())
	result, err := engine.Run(ctx)
	if err == nil {
		t.Fatal("expected error when context is already cancelled")
	}
	if result == nil {
		t.Fatal("expected partial result even on interruption")
	}
	if result.CleanShutdown {
		t.Error("interrupted run must not report clean shutdown")
	}
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	config := QuickScenario()
	config.BufferCapacity = 0

	engine := New(config)
	if _, err := engine.Run(context.Background()); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
}

func TestEngineAlreadyRunning(t *testing.T) {
	config := QuickScenario()
	engine := New(config)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = engine.Run(context.Background())
	}()

	// Wait until the first run is underway
	deadline := time.After(time.Second)
	for !engine.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("engine never started running")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := engine.Run(context.Background()); err == nil {
		t.Error("expected second concurrent run to be rejected")
	}

	<-done
}

func TestResultReport(t *testing.T) {
	engine := New(QuickScenario())
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("failed to run scenario: %v", err)
	}

	report := result.Report()

	for _, want := range []string{
		"SCENARIO REPORT: quick",
		"BUFFER METRICS",
		"POOL STATISTICS",
		"CLEAN",
		"greeters",
		"producer-consumer",
		"clients",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
