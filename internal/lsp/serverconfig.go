package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/agentcore"
)

// ServerSpec is one configured LSP server record. Unknown JSON keys on a
// record are rejected by the decoder (DisallowUnknownFields).
type ServerSpec struct {
	ID             string            `json:"id"`
	Command        []string          `json:"command"`
	Extensions     []string          `json:"extensions"`
	RootMarkers    []string          `json:"rootMarkers"`
	Env            map[string]string `json:"env,omitempty"`
	Initialization map[string]any    `json:"initialization,omitempty"`
}

// serversFileEnvelope accepts either a bare array of servers, or an object
// with a top-level "servers" array.
type serversFileEnvelope struct {
	Servers []ServerSpec `json:"servers"`
}

// ConfigLoader reads and caches a servers.json file by path+mtime, and
// notifies registered watchers when the file changes on disk via fsnotify.
type ConfigLoader struct {
	mu       sync.Mutex
	path     string
	mtimeMs  int64
	cached   []ServerSpec
	watcher  *fsnotify.Watcher
	onChange func([]ServerSpec)
	logger   *zap.Logger
}

// NewConfigLoader creates a loader for the servers.json file at path. It
// does not start watching until Watch is called.
func NewConfigLoader(path string, logger *zap.Logger) *ConfigLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigLoader{path: path, logger: logger}
}

// Load reads the servers.json file, using the cached parse if the file's
// mtime has not changed since the last read.
func (l *ConfigLoader) Load() ([]ServerSpec, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

func (l *ConfigLoader) loadLocked() ([]ServerSpec, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat servers config: %w", err)
	}
	mtimeMs := info.ModTime().UnixMilli()
	if l.cached != nil && mtimeMs == l.mtimeMs {
		return l.cached, nil
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers config: %w", err)
	}

	specs, err := parseServersFile(raw)
	if err != nil {
		return nil, err
	}

	l.cached = specs
	l.mtimeMs = mtimeMs
	return specs, nil
}

func parseServersFile(raw []byte) ([]ServerSpec, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var specs []ServerSpec
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&specs); err != nil {
			return nil, fmt.Errorf("invalid servers config array: %w", err)
		}
		if errs := validateServerSpecs(specs); errs.HasErrors() {
			return nil, errs
		}
		return specs, nil
	}

	var envelope serversFileEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("invalid servers config object: %w", err)
	}
	if errs := validateServerSpecs(envelope.Servers); errs.HasErrors() {
		return nil, errs
	}
	return envelope.Servers, nil
}

// validateServerSpecs enforces the semantic constraints DisallowUnknownFields
// can't: a non-empty id, a non-empty command, and at least one of
// extensions/rootMarkers to match files against.
func validateServerSpecs(specs []ServerSpec) *agentcore.ValidationErrors {
	var errs agentcore.ValidationErrors
	for i, s := range specs {
		if s.ID == "" {
			errs.Add(fmt.Sprintf("servers[%d].id", i), "non-empty string", s.ID, "every server record needs a stable id")
		}
		if len(s.Command) == 0 {
			errs.Add(fmt.Sprintf("servers[%d].command", i), "non-empty array", s.Command, "command must list the executable and its arguments")
		}
		if len(s.Extensions) == 0 && len(s.RootMarkers) == 0 {
			errs.Add(fmt.Sprintf("servers[%d]", i), "extensions or rootMarkers present", nil, "a server needs at least one way to match against a file")
		}
	}
	return &errs
}

// Watch starts an fsnotify watch on the config file's directory and invokes
// onChange with the freshly re-loaded server list whenever the file's
// content changes, so a mid-run edit to servers.json is picked up without a
// restart.
func (l *ConfigLoader) Watch(onChange func([]ServerSpec)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	l.mu.Lock()
	l.watcher = watcher
	l.onChange = onChange
	l.mu.Unlock()

	go l.watchLoop(watcher)
	return nil
}

func (l *ConfigLoader) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != l.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			l.mu.Lock()
			specs, err := l.loadLocked()
			cb := l.onChange
			l.mu.Unlock()
			if err != nil {
				l.logger.Warn("failed to reload servers config after change", zap.Error(err))
				continue
			}
			if cb != nil {
				cb(specs)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("servers config watcher error", zap.Error(err))
		}
	}
}

// Close stops the background watch goroutine, if one was started.
func (l *ConfigLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Close()
}
