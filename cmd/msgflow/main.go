// Package main is the entry point for MsgFlow.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"msgflow/internal/api"
	"msgflow/internal/config"
	"msgflow/internal/logger"
	"msgflow/internal/scenario"
)

var (
	version = "dev"
)

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		presetName  = flag.String("preset", "", "プリセットシナリオ名 (full, buffer, pool, quick)")
		capacity    = flag.Int("capacity", 0, "バッファ容量")
		workers     = flag.Int("workers", 0, "プールのワーカー数")
		clients     = flag.Int("clients", 0, "模擬クライアント数")
		timeout     = flag.Duration("timeout", 0, "プール終了待ちの上限 (例: 30s)")
		noColor     = flag.Bool("no-color", false, "ログのカラー出力を無効化")
		listPresets = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
		showVersion = flag.Bool("version", false, "バージョンを表示")
		serverMode  = flag.Bool("server", false, "ライブAPIサーバーモードで起動")
		serverAddr  = flag.String("addr", ":8080", "サーバーアドレス (例: :8080, 0.0.0.0:3000)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `MsgFlow - Bounded Buffer & Worker Pool Simulator

Usage:
  msgflow [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # 3ステージのフルデモを実行（デフォルト）
  msgflow

  # プリセットシナリオを実行
  msgflow --preset quick

  # 設定ファイルから実行
  msgflow --config scenario.yaml

  # フラグでカスタマイズ
  msgflow --preset pool --workers 10 --clients 20

  # プリセット一覧を表示
  msgflow --list-presets

  # ライブAPIサーバーモードで起動
  msgflow --server --addr :3000
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("msgflow version %s\n", version)
		return
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	if !*noColor {
		logger.Default.SetColor(true)
	}

	// ライブサーバーモード
	if *serverMode {
		if err := runServer(*serverAddr); err != nil {
			logger.Error("", "server error: %v", err)
			os.Exit(1)
		}
		return
	}

	// シナリオ設定の決定
	scenarioConfig, err := buildScenarioConfig(*configFile, *presetName, *capacity, *workers, *clients, *timeout)
	if err != nil {
		logger.Error("", "config error: %v", err)
		os.Exit(1)
	}

	// シナリオ実行
	if err := runScenario(scenarioConfig); err != nil {
		logger.Error("", "scenario error: %v", err)
		os.Exit(1)
	}
}

// buildScenarioConfig はシナリオ設定を構築する
func buildScenarioConfig(
	configFile, presetName string,
	capacity, workers, clients int,
	timeout time.Duration,
) (scenario.Config, error) {
	var cfg scenario.Config

	// 1. 設定ファイルから読み込み
	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config file: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, fmt.Errorf("config validation failed: %w", err)
		}
		cfg, err = fileConfig.ToScenarioConfig()
		if err != nil {
			return cfg, fmt.Errorf("config conversion failed: %w", err)
		}
	} else if presetName != "" {
		// 2. プリセットから読み込み
		preset, ok := scenario.GetPreset(presetName)
		if !ok {
			return cfg, fmt.Errorf("unknown preset: %s (available: %v)", presetName, scenario.ListPresets())
		}
		cfg = preset
	} else {
		// 3. デフォルト（fullシナリオ）
		cfg = scenario.FullScenario()
	}

	// フラグでオーバーライド
	if capacity > 0 {
		cfg.BufferCapacity = capacity
		cfg.ClientBufferCapacity = capacity
	}
	if workers > 0 {
		cfg.PoolWorkers = workers
	}
	if clients > 0 {
		cfg.ClientCount = clients
	}
	if timeout > 0 {
		cfg.ShutdownTimeout = timeout
	}

	return cfg, nil
}

// runScenario はシナリオを実行する
func runScenario(cfg scenario.Config) error {
	fmt.Println("MsgFlow - Bounded Buffer & Worker Pool Simulator")
	fmt.Println("================================================")
	fmt.Printf("Scenario: %s\n", cfg.Name)
	fmt.Printf("Buffer: %d, Workers: %d, Clients: %d\n",
		cfg.ClientBufferCapacity, cfg.PoolWorkers, cfg.ClientCount)
	fmt.Printf("Shutdown timeout: %v\n", cfg.ShutdownTimeout)
	fmt.Println("================================================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\ninterrupt received, stopping scenario...")
		cancel()
	}()

	// シナリオ実行
	engine := scenario.New(cfg)
	result, err := engine.Run(ctx)
	if result != nil {
		fmt.Println(result.Report())
	}
	return err
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("Available preset scenarios:")
	fmt.Println()

	for _, name := range scenario.ListPresets() {
		config, _ := scenario.GetPreset(name)
		fmt.Printf("  %-12s %s\n", name, config.Description)
	}

	fmt.Println()
	fmt.Println("Usage: msgflow --preset quick")
}

// runServer はライブAPIサーバーを起動する
func runServer(addr string) error {
	fmt.Println("MsgFlow - Live API Server")
	fmt.Println("=========================")
	fmt.Printf("Starting server on http://%s\n", addr)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\ninterrupt received, shutting down server...")
		cancel()
	}()

	server := api.NewServer(addr)
	return server.Start(ctx)
}
