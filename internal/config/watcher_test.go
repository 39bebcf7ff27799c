package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	initialConfig = "polaris:\n  domain: acme\n"
	updatedConfig = "polaris:\n  domain: globex\n"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func counter(err error) (*int32, ReloadFunc) {
	var n int32
	return &n, func(string) error {
		atomic.AddInt32(&n, 1)
		return err
	}
}

func TestWatchConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, initialConfig)

	var gotPath atomic.Value
	var reloadCount int32
	reloadFn := func(path string) error {
		gotPath.Store(path)
		atomic.AddInt32(&reloadCount, 1)
		return nil
	}

	watcher, err := WatchConfigFile(configPath, reloadFn, WithDebounce(0))
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Close()

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, configPath, updatedConfig)

	if !waitFor(func() bool { return atomic.LoadInt32(&reloadCount) > 0 }) {
		t.Fatal("Expected reload to be triggered")
	}
	if gotPath.Load() != configPath {
		t.Errorf("Expected reload of %s, got %v", configPath, gotPath.Load())
	}
}

func TestWatchConfigFileAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, configPath, initialConfig)

	reloadCount, reloadFn := counter(nil)
	watcher, err := WatchConfigFile(configPath, reloadFn)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Close()

	time.Sleep(100 * time.Millisecond)

	// write to a temp file then rename, the way vim saves
	tempPath := filepath.Join(tmpDir, "config.yaml.tmp")
	writeConfig(t, tempPath, updatedConfig)
	if err := os.Rename(tempPath, configPath); err != nil {
		t.Fatalf("Failed to rename temp file: %v", err)
	}

	if !waitFor(func() bool { return atomic.LoadInt32(reloadCount) > 0 }) {
		t.Error("Expected reload to be triggered on atomic write")
	}
}

func TestWatchConfigFileDebounce(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, initialConfig)

	reloadCount, reloadFn := counter(nil)
	watcher, err := WatchConfigFile(configPath, reloadFn, WithDebounce(150*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Close()

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		writeConfig(t, configPath, updatedConfig)
		time.Sleep(10 * time.Millisecond)
	}

	if !waitFor(func() bool { return atomic.LoadInt32(reloadCount) > 0 }) {
		t.Fatal("Expected a reload after the burst")
	}
	time.Sleep(300 * time.Millisecond)

	if got := atomic.LoadInt32(reloadCount); got != 1 {
		t.Errorf("Expected a single reload for a burst of writes, got %d", got)
	}
}

func TestWatchConfigFileReloadError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, initialConfig)

	logger, hook := test.NewNullLogger()
	reloadCount, reloadFn := counter(errors.New("reload failed"))

	watcher, err := WatchConfigFile(configPath, reloadFn, WithLogger(logger), WithDebounce(0))
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Close()

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, configPath, updatedConfig)

	if !waitFor(func() bool { return atomic.LoadInt32(reloadCount) > 0 }) {
		t.Fatal("Expected reload to be attempted despite error")
	}

	logged := waitFor(func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.ErrorLevel {
				return true
			}
		}
		return false
	})
	if !logged {
		t.Error("Expected the reload failure to be logged at error level")
	}
}

func TestWatchConfigFileOtherFileIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	writeConfig(t, configPath, initialConfig)

	reloadCount, reloadFn := counter(nil)
	watcher, err := WatchConfigFile(configPath, reloadFn, WithDebounce(0))
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Close()

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, filepath.Join(tmpDir, "other.yaml"), "other: content")
	time.Sleep(300 * time.Millisecond)

	if atomic.LoadInt32(reloadCount) != 0 {
		t.Error("Expected no reload for changes to other files")
	}
}

func TestWatchConfigFileNonexistentDir(t *testing.T) {
	_, reloadFn := counter(nil)

	if _, err := WatchConfigFile("/nonexistent/path/config.yaml", reloadFn); err == nil {
		t.Error("Expected error for nonexistent directory")
	}
}

func TestWatchConfigFileClose(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, initialConfig)

	reloadCount, reloadFn := counter(nil)
	watcher, err := WatchConfigFile(configPath, reloadFn, WithDebounce(0))
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}

	_ = watcher.Close()
	time.Sleep(100 * time.Millisecond)

	writeConfig(t, configPath, updatedConfig)
	time.Sleep(200 * time.Millisecond)

	if atomic.LoadInt32(reloadCount) != 0 {
		t.Error("Expected no reload after watcher closed")
	}
}

func TestSetupSIGHUPHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, _ := test.NewNullLogger()
	reloadCount, reloadFn := counter(nil)
	SetupSIGHUPHandler(ctx, "config.yaml", reloadFn, WithLogger(logger))

	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("Failed to send SIGHUP: %v", err)
	}

	if !waitFor(func() bool { return atomic.LoadInt32(reloadCount) == 1 }) {
		t.Errorf("Expected one reload after SIGHUP, got %d", atomic.LoadInt32(reloadCount))
	}
}
