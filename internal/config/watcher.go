package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the config file when it changes on disk. The parent
// directory is watched so editors that replace the file on save are seen.
type Watcher struct {
	loader    *Loader
	path      string
	debounce  time.Duration
	onChange  func(*Config)
	logger    zerolog.Logger
	watcher   *fsnotify.Watcher
	done      chan struct{}
	timerMu   sync.Mutex
	timer     *time.Timer
	stopOnce  sync.Once
	eventLoop sync.WaitGroup
}

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	Loader   *Loader
	Debounce time.Duration
	// OnChange receives each successfully loaded config
	OnChange func(*Config)
	Logger   zerolog.Logger
}

// NewWatcher creates a config watcher
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	path := cfg.Loader.GetConfigPath()
	if path == "" {
		return nil, fmt.Errorf("config path could not be determined")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		loader:   cfg.Loader,
		path:     filepath.Clean(path),
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		logger:   cfg.Logger.With().Str("component", "config-watcher").Logger(),
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The config directory must exist.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.eventLoop.Add(1)
	go w.run()

	w.logger.Debug().Str("path", w.path).Msg("Config watcher started")
	return nil
}

// Stop stops the watcher and drops any pending reload
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()

		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
		w.eventLoop.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.eventLoop.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.reload()
	})
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn().Err(err).Msg("Config reload failed, keeping previous config")
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn().Err(err).Msg("Reloaded config is invalid, keeping previous config")
		return
	}

	w.logger.Info().Str("model", cfg.Model).Msg("Config reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
