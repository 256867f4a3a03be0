package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DynamicConfig holds runtime-changeable limits, loaded from a YAML file
// and reloaded on change without a restart.
type DynamicConfig struct {
	Limits   Limits         `yaml:"limits"`
	Metadata ConfigMetadata `yaml:"metadata"`
}

// Limits holds tunable application limits.
type Limits struct {
	MaxTagsPerUser     int `yaml:"maxTagsPerUser"`
	MaxCandidates      int `yaml:"maxCandidates"`
	MessagePageSize    int `yaml:"messagePageSize"`
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// ConfigMetadata describes the loaded file.
type ConfigMetadata struct {
	Version   string    `yaml:"version"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// DefaultDynamicConfig returns the limits used when no file is configured.
func DefaultDynamicConfig() *DynamicConfig {
	return &DynamicConfig{
		Limits: Limits{
			MaxTagsPerUser:     25,
			MaxCandidates:      100,
			MessagePageSize:    50,
			RateLimitPerMinute: 120,
		},
	}
}

// Watcher watches the dynamic configuration file for changes.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *DynamicConfig
	mu       sync.RWMutex
	onChange []func(*DynamicConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewWatcher loads the file and starts tracking it.
func NewWatcher(configPath string, logger *zap.Logger) (*Watcher, error) {
	current, err := loadDynamicConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(configPath); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	// Watch the directory too, editors and k8s configmaps replace the
	// file via rename.
	if err := fsWatcher.Add(filepath.Dir(configPath)); err != nil {
		logger.Warn("failed to watch config directory", zap.Error(err))
	}

	return &Watcher{
		path:    configPath,
		watcher: fsWatcher,
		current: current,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes.
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

// Current returns the latest loaded configuration.
func (w *Watcher) Current() *DynamicConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(fn func(*DynamicConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

func (w *Watcher) watchLoop() {
	var debounce *time.Timer
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts from atomic saves.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	updated, err := loadDynamicConfig(w.path)
	if err != nil {
		w.logger.Error("failed to reload config, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = updated
	callbacks := make([]func(*DynamicConfig), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded",
		zap.String("version", updated.Metadata.Version))
	for _, fn := range callbacks {
		fn(updated)
	}
}

func loadDynamicConfig(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultDynamicConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
