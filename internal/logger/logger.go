// Package logger 是进程级的 slog 包装：printf 风格接口、运行时可调级别，
// 每条记录同时进入内存环形缓冲供控制台读取。
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	levelVar slog.LevelVar
	active   atomic.Pointer[slog.Logger]
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func init() {
	levelVar.Set(slog.LevelInfo)
	SetOutput(os.Stdout)
}

// SetOutput 替换输出目标；环形缓冲始终保留。
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(io.MultiWriter(w, recent), &slog.HandlerOptions{Level: &levelVar})
	active.Store(slog.New(handler))
}

// SetLevel 接受 debug|info|warn|error，未知值回落到 info。
func SetLevel(level string) {
	lv, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lv = slog.LevelInfo
	}
	levelVar.Set(lv)
}

// Level reports the active level name.
func Level() string {
	return strings.ToLower(levelVar.Level().String())
}

func logf(level slog.Level, format string, v ...any) {
	l := active.Load()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v...) }

func Infof(format string, v ...any) { logf(slog.LevelInfo, format, v...) }

func Warnf(format string, v ...any) { logf(slog.LevelWarn, format, v...) }

func Errorf(format string, v ...any) { logf(slog.LevelError, format, v...) }

// InfoBlock 逐行输出多行文本（启动摘要等）。
func InfoBlock(block string) {
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if line != "" {
			Infof("%s", line)
		}
	}
}
