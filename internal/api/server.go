package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"msgflow/internal/events"
	"msgflow/internal/logger"
	"msgflow/internal/scenario"

	"golang.org/x/net/websocket"
)

// Server はAPIサーバー
// 実行中のシナリオの状態とメトリクスをHTTPとWebSocketで公開する
type Server struct {
	addr   string
	engine *scenario.Engine
	bus    *events.Bus

	mu     sync.RWMutex
	config scenario.Config

	wsMu      sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string) *Server {
	return &Server{
		addr:      addr,
		bus:       events.NewBus(),
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Start はサーバーを開始する
// ctxのキャンセルで正常終了する
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/run", s.handleRun)

	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	// バックグラウンドで状態配信
	go s.broadcastLoop(ctx)
	go s.eventLoop(ctx)

	logger.Info("", "API server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running      bool   `json:"running"`
	ScenarioName string `json:"scenario_name,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.status())
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{}
	if s.engine != nil {
		resp.Running = s.engine.IsRunning()
		resp.ScenarioName = s.config.Name
	}
	return resp
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	Produced     uint64  `json:"produced"`
	Consumed     uint64  `json:"consumed"`
	MaxDepth     int     `json:"max_depth"`
	FullWaits    uint64  `json:"full_waits"`
	EmptyWaits   uint64  `json:"empty_waits"`
	Submitted    uint64  `json:"submitted"`
	Rejected     uint64  `json:"rejected"`
	Abandoned    uint64  `json:"abandoned"`
	AvgSessionMs float64 `json:"avg_session_ms"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.metrics())
}

func (s *Server) metrics() MetricsResponse {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	resp := MetricsResponse{}
	if engine == nil {
		return resp
	}

	snapshot := engine.Metrics()
	resp.Produced = snapshot.Produced
	resp.Consumed = snapshot.Consumed
	resp.MaxDepth = snapshot.MaxDepth
	resp.FullWaits = snapshot.FullWaits
	resp.EmptyWaits = snapshot.EmptyWaits
	resp.Submitted = snapshot.Submitted
	resp.Rejected = snapshot.Rejected
	resp.Abandoned = snapshot.Abandoned
	resp.AvgSessionMs = float64(snapshot.AverageSession.Microseconds()) / 1000.0
	return resp
}

// PresetInfo はプリセット情報
type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var presets []PresetInfo
	for _, name := range scenario.ListPresets() {
		config, _ := scenario.GetPreset(name)
		presets = append(presets, PresetInfo{Name: name, Description: config.Description})
	}

	s.writeJSON(w, presets)
}

// RunRequest はシナリオ開始リクエスト
type RunRequest struct {
	Preset string `json:"preset"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	config, ok := scenario.GetPreset(req.Preset)
	if !ok {
		config = scenario.QuickScenario()
	}

	s.mu.Lock()
	if s.engine != nil && s.engine.IsRunning() {
		s.mu.Unlock()
		http.Error(w, "Scenario already running", http.StatusConflict)
		return
	}
	s.config = config
	s.engine = scenario.New(config)
	s.engine.SetEventBus(s.bus)
	engine := s.engine
	s.mu.Unlock()

	// バックグラウンドで実行
	go func() {
		result, err := engine.Run(context.Background())
		if err != nil {
			logger.Error("", "scenario failed: %v", err)
			return
		}
		logger.Info("", "scenario completed: %d produced, %d consumed",
			result.Produced, result.Consumed)

		s.broadcast(map[string]any{
			"type":   "scenario_complete",
			"result": result,
		})
	}()

	s.writeJSON(w, map[string]string{"status": "started", "scenario": config.Name})
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.wsMu.Lock()
	s.wsClients[ws] = true
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsClients, ws)
		s.wsMu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data any) {
	s.wsMu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.wsMu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop は1秒ごとに状態とメトリクスを配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := s.status()
			if !status.Running {
				continue
			}

			s.broadcast(map[string]any{
				"type":    "status",
				"status":  status,
				"metrics": s.metrics(),
			})
		}
	}
}

// eventLoop はエンジンのイベントをWebSocketへ転送する
func (s *Server) eventLoop(ctx context.Context) {
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": event,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "failed to encode JSON: %v", err)
	}
}
