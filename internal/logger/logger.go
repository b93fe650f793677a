package logger

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"sync"
	"time"
)

// Level はログレベルを表す
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

const colorReset = "\x1b[0m"

// actorPalette はアクターに割り当てる明色ANSIカラー
var actorPalette = []string{
	"\x1b[94m", // bright blue
	"\x1b[92m", // bright green
	"\x1b[93m", // bright yellow
	"\x1b[95m", // bright magenta
	"\x1b[96m", // bright cyan
	"\x1b[91m", // bright red
}

// Logger はスレッドセーフなロガー
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	color    bool
}

// Default はデフォルトのロガー
var Default = New(os.Stdout, LevelInfo)

// New は新しいロガーを作成する
func New(out io.Writer, minLevel Level) *Logger {
	return &Logger{
		out:      out,
		minLevel: minLevel,
	}
}

// SetLevel はログレベルを設定する
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SetColor はアクターごとのカラー出力を有効/無効にする
// カラーは表示のみでログの内容には影響しない
func (l *Logger) SetColor(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = enabled
}

// actorColor はアクター名のハッシュから安定した色を返す
func actorColor(actor string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(actor))
	return actorPalette[h.Sum32()%uint32(len(actorPalette))]
}

// log は指定されたレベルでログを出力する
func (l *Logger) log(level Level, actor string, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	if l.color && actor != "" {
		c := actorColor(actor)
		_, _ = fmt.Fprintf(l.out, "[%s] [%s] [%s] %s%s%s\n", timestamp, level, actor, c, msg, colorReset)
		return
	}

	if actor != "" {
		_, _ = fmt.Fprintf(l.out, "[%s] [%s] [%s] %s\n", timestamp, level, actor, msg)
	} else {
		_, _ = fmt.Fprintf(l.out, "[%s] [%s] %s\n", timestamp, level, msg)
	}
}

// Debug はデバッグログを出力する
func (l *Logger) Debug(actor string, format string, args ...any) {
	l.log(LevelDebug, actor, format, args...)
}

// Info は情報ログを出力する
func (l *Logger) Info(actor string, format string, args ...any) {
	l.log(LevelInfo, actor, format, args...)
}

// Warn は警告ログを出力する
func (l *Logger) Warn(actor string, format string, args ...any) {
	l.log(LevelWarn, actor, format, args...)
}

// Error はエラーログを出力する
func (l *Logger) Error(actor string, format string, args ...any) {
	l.log(LevelError, actor, format, args...)
}

// グローバル関数（デフォルトロガーを使用）

// Debug はデバッグログを出力する
func Debug(actor string, format string, args ...any) {
	Default.Debug(actor, format, args...)
}

// Info は情報ログを出力する
func Info(actor string, format string, args ...any) {
	Default.Info(actor, format, args...)
}

// Warn は警告ログを出力する
func Warn(actor string, format string, args ...any) {
	Default.Warn(actor, format, args...)
}

// Error はエラーログを出力する
func Error(actor string, format string, args ...any) {
	Default.Error(actor, format, args...)
}
