package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"lms_backend/internal/config"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ConfigReloader func(cfg *config.Config)

type Watcher struct {
	Path     string
	Log      *zap.Logger
	Reload   ConfigReloader
	Debounce time.Duration
}

func New(path string, log *zap.Logger, reload ConfigReloader) *Watcher {
	return &Watcher{Path: path, Log: log, Reload: reload, Debounce: time.Second}
}

// Run watches the config file until ctx is cancelled. The parent directory is
// watched so that editors which replace the file are still picked up.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.Path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				// 防抖处理
				timer.Reset(w.Debounce)
			}
		case <-timer.C:
			// 重新加载配置
			newCfg, err := config.LoadConfig(filepath.Dir(absPath))
			if err != nil {
				w.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			w.Log.Info("Config reloaded", zap.String("file", absPath))
			w.Reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
