package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"tradesync/internal/logger"
)

// ChangeListener 在配置变更时被调用。
type ChangeListener func(Config)

// Watcher 监听配置文件热更新。目前仅日志级别在运行时生效，
// 其余字段需要重启；快照仍整体刷新，方便监听方按需取用。
type Watcher struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Config
	listeners []ChangeListener
}

// NewWatcher 读取配置文件并开始监听 FS 事件。
func NewWatcher(path string) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires path")
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	w := &Watcher{path: path, v: v, snapshot: *cfg}
	v.OnConfigChange(func(evt fsnotify.Event) {
		next, err := Load(w.path)
		if err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		w.mu.Lock()
		prev := w.snapshot
		w.snapshot = *next
		listeners := append([]ChangeListener(nil), w.listeners...)
		w.mu.Unlock()
		if prev.App.LogLevel != next.App.LogLevel {
			logger.SetLevel(next.App.LogLevel)
			logger.Infof("config: log level changed %s -> %s", prev.App.LogLevel, next.App.LogLevel)
		}
		for _, fn := range listeners {
			fn(*next)
		}
	})
	v.WatchConfig()
	return w, nil
}

// Snapshot 返回当前配置快照。
func (w *Watcher) Snapshot() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Subscribe 注册变更监听器。
func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}
