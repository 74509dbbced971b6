package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// clientState mirrors an individual LSP server client's connectivity, not
// to be confused with agentcore.BootstrapState which is the run-level FSM
// state derived from many clients' signals.
type clientState string

const (
	clientConnecting clientState = "connecting"
	clientConnected  clientState = "connected"
	clientError      clientState = "error"
)

// client wraps one spawned LSP server process and its RPC connection.
type client struct {
	spec        ServerSpec
	rootPath    string
	cmd         *exec.Cmd
	conn        *rpcConn
	diagnostics *DiagnosticsStore
	state       clientState
	errorReason string
}

type registryKey struct {
	rootPath string
	serverID string
}

// Registry is the process-wide, run-scoped table of live LSP clients keyed
// by (rootPath, serverID), an in-flight spawn map that deduplicates
// concurrent spawns of the same key, and a broken-key set recording the last
// failure reason so repeated initialize failures are not retried every
// probe. Registry is a singleton shared across a run's steps; one mutex
// guards all three maps and is not held across a blocking spawn.
type Registry struct {
	mu       sync.Mutex
	clients  map[registryKey]*client
	inFlight map[registryKey]chan struct{}
	broken   map[registryKey]string
	logger   *zap.Logger
}

// NewRegistry creates an empty client registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		clients:  map[registryKey]*client{},
		inFlight: map[registryKey]chan struct{}{},
		broken:   map[registryKey]string{},
		logger:   logger,
	}
}

// ProbeResult is what probeFiles returns.
type ProbeResult struct {
	Status          string
	DiagnosticsFiles []string
	Reason          string
}

// ProbeFiles is the LSP client's public probeFiles(paths[]) operation: for
// each applicable file it resolves (or spawns) the owning server and waits
// for fresh diagnostics.
func (r *Registry) ProbeFiles(ctx context.Context, paths []string, servers []ServerSpec, cwd string, waitMs int) ProbeResult {
	applicable := applicableFiles(paths, servers)
	if len(applicable) == 0 {
		return ProbeResult{Status: "no_applicable_files"}
	}

	anyDiagnostics := false
	var diagFiles []string
	anyFailure := false
	var failureReason string
	anyNoServer := false

	for file, spec := range applicable {
		root := ResolveRoot(file, spec.RootMarkers, cwd)
		c, err := r.ensureClient(ctx, spec, root)
		if err != nil {
			anyFailure = true
			failureReason = err.Error()
			continue
		}
		if c == nil {
			anyNoServer = true
			continue
		}

		baseline := c.diagnostics.Version(file)
		diags, got := c.diagnostics.WaitForDiagnostics(file, baseline, time.Duration(waitMs)*time.Millisecond)
		if got && len(diags) > 0 {
			anyDiagnostics = true
			diagFiles = append(diagFiles, file)
		}
	}

	switch {
	case anyDiagnostics:
		return ProbeResult{Status: "diagnostics", DiagnosticsFiles: diagFiles}
	case anyFailure:
		return ProbeResult{Status: "failed", Reason: failureReason}
	case anyNoServer:
		return ProbeResult{Status: "no_active_server"}
	default:
		return ProbeResult{Status: "no_errors"}
	}
}

func applicableFiles(paths []string, servers []ServerSpec) map[string]ServerSpec {
	out := map[string]ServerSpec{}
	for _, path := range paths {
		for _, spec := range servers {
			if hasExtension(path, spec.Extensions) {
				out[path] = spec
				break
			}
		}
	}
	return out
}

func hasExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// ensureClient returns the connected client for (root, spec.ID), spawning it
// if necessary. It returns either a client or an error, never nil, nil, so
// ProbeFiles never reports no_active_server from here. The in-flight map deduplicates
// concurrent spawns of the same key without requiring a lock held across
// the blocking spawn+initialize sequence.
func (r *Registry) ensureClient(ctx context.Context, spec ServerSpec, root string) (*client, error) {
	key := registryKey{rootPath: root, serverID: spec.ID}

	r.mu.Lock()
	if c, ok := r.clients[key]; ok {
		r.mu.Unlock()
		if c.state == clientError {
			return nil, fmt.Errorf("%s", c.errorReason)
		}
		return c, nil
	}
	if reason, ok := r.broken[key]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%s", reason)
	}
	if wait, ok := r.inFlight[key]; ok {
		r.mu.Unlock()
		<-wait
		return r.ensureClient(ctx, spec, root)
	}
	done := make(chan struct{})
	r.inFlight[key] = done
	r.mu.Unlock()

	c, err := r.spawnAndInitialize(ctx, spec, root)

	r.mu.Lock()
	delete(r.inFlight, key)
	if err != nil {
		r.broken[key] = err.Error()
	} else {
		r.clients[key] = c
	}
	r.mu.Unlock()
	close(done)

	return c, err
}

func (r *Registry) spawnAndInitialize(ctx context.Context, spec ServerSpec, root string) (*client, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("server %q has no command configured", spec.ID)
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = root
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server %q: %w", spec.ID, err)
	}

	conn := newRPCConn(stdin, stdout)
	diagStore := NewDiagnosticsStore()
	conn.OnNotification("textDocument/publishDiagnostics", func(params json.RawMessage) {
		var payload struct {
			URI         string       `json:"uri"`
			Diagnostics []Diagnostic `json:"diagnostics"`
		}
		if err := json.Unmarshal(params, &payload); err != nil {
			return
		}
		diagStore.Publish(payload.URI, payload.Diagnostics)
	})
	go func() { _ = conn.Serve() }()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	initDone := make(chan error, 1)
	go func() {
		_, err := conn.Call("initialize", initializeParams(root, spec.Initialization))
		initDone <- err
	}()

	select {
	case err := <-initDone:
		if err != nil {
			_ = cmd.Process.Kill()
			return nil, fmt.Errorf("initialize failed for server %q: %w", spec.ID, err)
		}
	case <-initCtx.Done():
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("initialize timed out for server %q", spec.ID)
	}

	_ = conn.Notify("initialized", map[string]any{})

	r.logger.Info("lsp server connected", zap.String("server", spec.ID), zap.String("root", root))

	return &client{
		spec:        spec,
		rootPath:    root,
		cmd:         cmd,
		conn:        conn,
		diagnostics: diagStore,
		state:       clientConnected,
	}, nil
}

func initializeParams(root string, initialization map[string]any) map[string]any {
	return map[string]any{
		"processId": nil,
		"rootUri":   "file://" + root,
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"synchronization": map[string]any{"dynamicRegistration": false},
				"publishDiagnostics": map[string]any{"relatedInformation": true},
			},
		},
		"initializationOptions": initialization,
	}
}

// Status lists every known client key and its current state, for the
// status() public operation.
func (r *Registry) Status() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for key, c := range r.clients {
		out[key.serverID+"@"+key.rootPath] = string(c.state)
	}
	for key, reason := range r.broken {
		out[key.serverID+"@"+key.rootPath] = "broken: " + reason
	}
	return out
}

// Shutdown terminates every live client process. Intended to be called once
// at process teardown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
	}
	r.clients = map[registryKey]*client{}
}
