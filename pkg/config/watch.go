package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the config file whenever it changes and hands every valid
// result to onChange. Invalid edits are logged and the previous config stays
// in force. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*Config)) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("config watch initial read failed", zap.String("path", path), zap.Error(err))
		return
	}

	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			logger.Warn("config reload rejected", zap.String("path", path), zap.Error(err))
			return
		}
		onChange(cfg)
		logger.Info("config reloaded", zap.String("path", path))
	}

	// debounce is touched by viper's watcher goroutine and by shutdown
	var (
		mu       sync.Mutex
		debounce *time.Timer
		stopped  bool
	)
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if filepath.Clean(e.Name) != filepath.Clean(path) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(reloadDebounce, reload)
	})
	v.WatchConfig()

	<-ctx.Done()
	mu.Lock()
	stopped = true
	if debounce != nil {
		debounce.Stop()
	}
	mu.Unlock()
}
