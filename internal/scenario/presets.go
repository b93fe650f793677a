package scenario

import (
	"time"
)

// FullScenario は3ステージを通して実行する設定を返す
// 元のデモと同じ定数（容量3で7件、プール5に8クライアント）
func FullScenario() Config {
	config := DefaultConfig()
	config.Name = "full"
	config.Description = "All three stages: parallel greeters, bounded buffer, pooled clients"
	return config
}

// BufferScenario は生産者/消費者ステージのみの設定を返す
func BufferScenario() Config {
	config := DefaultConfig()
	config.Name = "buffer"
	config.Description = "Producer/consumer exercise against the bounded buffer"
	config.EnableGreeters = false
	config.EnableClientDemo = false
	return config
}

// PoolScenario はクライアント模擬ステージのみの設定を返す
func PoolScenario() Config {
	config := DefaultConfig()
	config.Name = "pool"
	config.Description = "Pooled client simulation with dispatcher drain"
	config.EnableGreeters = false
	config.EnableBufferDemo = false
	return config
}

// QuickScenario は短時間の動作確認用設定を返す
func QuickScenario() Config {
	return Config{
		Name:        "quick",
		Description: "Short run of all stages for smoke testing",
		StagePause:  50 * time.Millisecond,

		EnableGreeters:   true,
		EnableBufferDemo: true,
		EnableClientDemo: true,

		GreeterCount:      3,
		GreeterIterations: 2,
		GreeterInterval:   10 * time.Millisecond,
		GreeterStep:       5 * time.Millisecond,

		BufferCapacity:   3,
		ProducerMessages: 5,
		ConsumerMessages: 5,
		ProduceInterval:  5 * time.Millisecond,
		ConsumeInterval:  10 * time.Millisecond,

		PoolWorkers:          3,
		ClientCount:          5,
		ClientBufferCapacity: 5,
		ConnectInterval:      5 * time.Millisecond,
		ClientBaseDelay:      10 * time.Millisecond,
		ClientDelayStep:      5 * time.Millisecond,
		ProcessInterval:      5 * time.Millisecond,
		ShutdownTimeout:      5 * time.Second,
	}
}

// GetPreset は名前からプリセット設定を返す
func GetPreset(name string) (Config, bool) {
	switch name {
	case "full":
		return FullScenario(), true
	case "buffer":
		return BufferScenario(), true
	case "pool":
		return PoolScenario(), true
	case "quick":
		return QuickScenario(), true
	default:
		return Config{}, false
	}
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"full", "buffer", "pool", "quick"}
}
