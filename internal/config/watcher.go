// Package config provides configuration management utilities including
// file watching and signal handling for dynamic configuration reload.
package config

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc is called when config reload is triggered.
// Returns error if reload fails (logged but doesn't stop watcher).
// The configPath parameter is the path to the configuration file.
type ReloadFunc func(configPath string) error

// Option configures the SIGHUP handler and the file watcher.
type Option func(*options)

type options struct {
	logger   logrus.FieldLogger
	debounce time.Duration
}

func newOptions(opts []Option) options {
	o := options{logger: logrus.StandardLogger(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used to report reloads.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDebounce sets the quiet period after the last file event before a
// reload runs. Zero reloads on every event.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// SetupSIGHUPHandler sets up SIGHUP signal handler for config reload.
// SIGHUP is the standard Unix signal for configuration reload.
// The handler runs until ctx is done; the call returns immediately.
//
// Usage:
//
//	SetupSIGHUPHandler(ctx, "/path/to/config.yaml", server.ReloadConfig)
//	// Now: kill -HUP <pid> triggers reload
func SetupSIGHUPHandler(ctx context.Context, configPath string, reloadFn ReloadFunc, opts ...Option) {
	o := newOptions(opts)

	// Buffered channel prevents signal loss if handler is busy
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sighup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
				o.logger.Info("SIGHUP received, reloading configuration...")
				if err := reloadFn(configPath); err != nil {
					o.logger.Errorf("Configuration reload failed: %v", err)
				}
			}
		}
	}()

	o.logger.Info("SIGHUP handler configured for config reload")
}

// WatchConfigFile watches config file for changes and triggers reload.
//
// The directory is watched rather than the file: editors save atomically
// (temp file + rename), which replaces the inode a file watch would hold.
// Only Write and Create events on the config file's name count, and events
// closer together than the debounce window trigger a single reload.
//
// Returns the watcher for cleanup (caller should defer watcher.Close()).
//
// Usage:
//
//	watcher, err := WatchConfigFile("/path/to/config.yaml", server.ReloadConfig)
//	if err != nil {
//	    log.Warnf("File watcher setup failed: %v", err)
//	} else {
//	    defer watcher.Close()
//	}
func WatchConfigFile(configPath string, reloadFn ReloadFunc, opts ...Option) (*fsnotify.Watcher, error) {
	o := newOptions(opts)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(configPath)
	configName := filepath.Base(configPath)

	if err := watcher.Add(configDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	reload := func() {
		o.logger.Info("Config file changed, reloading...")
		if err := reloadFn(configPath); err != nil {
			o.logger.Errorf("Configuration reload failed: %v", err)
		}
	}

	go func() {
		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != configName {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if o.debounce == 0 {
					reload()
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(o.debounce, reload)
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				o.logger.Errorf("File watcher error: %v", err)
			}
		}
	}()

	o.logger.Infof("Watching config file: %s", configPath)
	return watcher, nil
}
