package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"msgflow/internal/scenario"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Scenario ScenarioConfig `yaml:"scenario" json:"scenario"`
}

// ScenarioConfig はシナリオ設定
type ScenarioConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	StagePause  string `yaml:"stage_pause" json:"stage_pause"`

	Stages   StagesConfig   `yaml:"stages" json:"stages"`
	Greeters GreetersConfig `yaml:"greeters" json:"greeters"`
	Buffer   BufferConfig   `yaml:"buffer" json:"buffer"`
	Clients  ClientsConfig  `yaml:"clients" json:"clients"`
}

// StagesConfig は各ステージの有効/無効
type StagesConfig struct {
	Greeters *bool `yaml:"greeters" json:"greeters"`
	Buffer   *bool `yaml:"buffer" json:"buffer"`
	Clients  *bool `yaml:"clients" json:"clients"`
}

// GreetersConfig はgreeterステージの設定
type GreetersConfig struct {
	Count      int    `yaml:"count" json:"count"`
	Iterations int    `yaml:"iterations" json:"iterations"`
	Interval   string `yaml:"interval" json:"interval"`
	Step       string `yaml:"step" json:"step"`
}

// BufferConfig は生産者/消費者ステージの設定
type BufferConfig struct {
	Capacity         int    `yaml:"capacity" json:"capacity"`
	ProducerMessages int    `yaml:"producer_messages" json:"producer_messages"`
	ConsumerMessages int    `yaml:"consumer_messages" json:"consumer_messages"`
	ProduceInterval  string `yaml:"produce_interval" json:"produce_interval"`
	ConsumeInterval  string `yaml:"consume_interval" json:"consume_interval"`
}

// ClientsConfig はクライアント模擬ステージの設定
type ClientsConfig struct {
	PoolWorkers     int    `yaml:"pool_workers" json:"pool_workers"`
	Count           int    `yaml:"count" json:"count"`
	BufferCapacity  int    `yaml:"buffer_capacity" json:"buffer_capacity"`
	ConnectInterval string `yaml:"connect_interval" json:"connect_interval"`
	BaseDelay       string `yaml:"base_delay" json:"base_delay"`
	DelayStep       string `yaml:"delay_step" json:"delay_step"`
	ProcessInterval string `yaml:"process_interval" json:"process_interval"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToScenarioConfig はFileConfigをscenario.Configに変換する
func (f *FileConfig) ToScenarioConfig() (scenario.Config, error) {
	sc := f.Scenario

	// デフォルト値の設定
	config := scenario.DefaultConfig()

	if sc.Name != "" {
		config.Name = sc.Name
	}
	if sc.Description != "" {
		config.Description = sc.Description
	}
	if err := setDuration(&config.StagePause, sc.StagePause, "stage_pause"); err != nil {
		return config, err
	}

	// ステージ有効化
	if sc.Stages.Greeters != nil {
		config.EnableGreeters = *sc.Stages.Greeters
	}
	if sc.Stages.Buffer != nil {
		config.EnableBufferDemo = *sc.Stages.Buffer
	}
	if sc.Stages.Clients != nil {
		config.EnableClientDemo = *sc.Stages.Clients
	}

	// Greeters設定
	if sc.Greeters.Count > 0 {
		config.GreeterCount = sc.Greeters.Count
	}
	if sc.Greeters.Iterations > 0 {
		config.GreeterIterations = sc.Greeters.Iterations
	}
	if err := setDuration(&config.GreeterInterval, sc.Greeters.Interval, "greeters.interval"); err != nil {
		return config, err
	}
	if err := setDuration(&config.GreeterStep, sc.Greeters.Step, "greeters.step"); err != nil {
		return config, err
	}

	// Buffer設定
	if sc.Buffer.Capacity > 0 {
		config.BufferCapacity = sc.Buffer.Capacity
	}
	if sc.Buffer.ProducerMessages > 0 {
		config.ProducerMessages = sc.Buffer.ProducerMessages
	}
	if sc.Buffer.ConsumerMessages > 0 {
		config.ConsumerMessages = sc.Buffer.ConsumerMessages
	}
	if err := setDuration(&config.ProduceInterval, sc.Buffer.ProduceInterval, "buffer.produce_interval"); err != nil {
		return config, err
	}
	if err := setDuration(&config.ConsumeInterval, sc.Buffer.ConsumeInterval, "buffer.consume_interval"); err != nil {
		return config, err
	}

	// Clients設定
	if sc.Clients.PoolWorkers > 0 {
		config.PoolWorkers = sc.Clients.PoolWorkers
	}
	if sc.Clients.Count > 0 {
		config.ClientCount = sc.Clients.Count
	}
	if sc.Clients.BufferCapacity > 0 {
		config.ClientBufferCapacity = sc.Clients.BufferCapacity
	}
	if err := setDuration(&config.ConnectInterval, sc.Clients.ConnectInterval, "clients.connect_interval"); err != nil {
		return config, err
	}
	if err := setDuration(&config.ClientBaseDelay, sc.Clients.BaseDelay, "clients.base_delay"); err != nil {
		return config, err
	}
	if err := setDuration(&config.ClientDelayStep, sc.Clients.DelayStep, "clients.delay_step"); err != nil {
		return config, err
	}
	if err := setDuration(&config.ProcessInterval, sc.Clients.ProcessInterval, "clients.process_interval"); err != nil {
		return config, err
	}
	if err := setDuration(&config.ShutdownTimeout, sc.Clients.ShutdownTimeout, "clients.shutdown_timeout"); err != nil {
		return config, err
	}

	return config, nil
}

// setDuration は空でない文字列をパースしてdstへ設定する
func setDuration(dst *time.Duration, value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	*dst = d
	return nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	sc := f.Scenario

	if sc.Greeters.Count < 0 {
		return fmt.Errorf("greeters.count must be non-negative")
	}
	if sc.Greeters.Iterations < 0 {
		return fmt.Errorf("greeters.iterations must be non-negative")
	}
	if sc.Buffer.Capacity < 0 {
		return fmt.Errorf("buffer.capacity must be non-negative")
	}
	if sc.Buffer.ProducerMessages < 0 {
		return fmt.Errorf("buffer.producer_messages must be non-negative")
	}
	if sc.Buffer.ConsumerMessages < 0 {
		return fmt.Errorf("buffer.consumer_messages must be non-negative")
	}
	if sc.Clients.PoolWorkers < 0 {
		return fmt.Errorf("clients.pool_workers must be non-negative")
	}
	if sc.Clients.Count < 0 {
		return fmt.Errorf("clients.count must be non-negative")
	}
	if sc.Clients.BufferCapacity < 0 {
		return fmt.Errorf("clients.buffer_capacity must be non-negative")
	}

	return nil
}
