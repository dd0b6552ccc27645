package toolproc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Ensure Supervisor implements the interface.
var _ driven.ToolCaller = (*Supervisor)(nil)

// DefaultGracePeriod is how long Shutdown waits before killing a worker.
const DefaultGracePeriod = 5 * time.Second

// Supervisor starts, tracks and stops tool workers by name.
type Supervisor struct {
	grace time.Duration

	mu       sync.RWMutex
	servers  map[string]*Server
	failures map[string]error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithGracePeriod sets how long Shutdown waits after the terminate signal.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.grace = d
		}
	}
}

// NewSupervisor creates a supervisor with no workers.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		grace:    DefaultGracePeriod,
		servers:  make(map[string]*Server),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches every provider concurrently and waits for each handshake.
// A provider that fails does not affect the others; its lifecycle error is
// returned under its name. The map is empty when all providers are ready.
func (s *Supervisor) Start(ctx context.Context, configs []ProviderConfig) map[string]error {
	errs := make(map[string]error)
	seen := make(map[string]bool, len(configs))
	var starting []*Server

	for _, cfg := range configs {
		switch {
		case cfg.Name == "":
			errs[cfg.Command] = fmt.Errorf("%w: provider for %q has no name", domain.ErrProcessLifecycle, cfg.Command)
		case seen[cfg.Name] || s.running(cfg.Name):
			errs[cfg.Name] = fmt.Errorf("%w: provider %s is already running", domain.ErrProcessLifecycle, cfg.Name)
		default:
			seen[cfg.Name] = true
			srv := newServer(cfg)
			s.mu.Lock()
			s.servers[cfg.Name] = srv
			s.mu.Unlock()
			starting = append(starting, srv)
		}
	}

	results := make([]error, len(starting))
	var wg sync.WaitGroup
	for i, srv := range starting {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = srv.start(ctx)
		}()
	}
	wg.Wait()

	s.mu.Lock()
	for i, srv := range starting {
		if err := results[i]; err != nil {
			delete(s.servers, srv.Name())
			s.failures[srv.Name()] = err
			errs[srv.Name()] = err
		} else {
			delete(s.failures, srv.Name())
		}
	}
	s.mu.Unlock()

	for name, err := range errs {
		logger.Warn("tool provider %s failed to start: %v", name, err)
	}
	return errs
}

func (s *Supervisor) running(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.servers[name]
	return ok
}

// Server returns the worker registered under name.
func (s *Supervisor) Server(name string) (*Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.servers[name]
	return srv, ok
}

// Names returns the registered worker names in order.
func (s *Supervisor) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// CallTool invokes a tool on the named provider.
func (s *Supervisor) CallTool(ctx context.Context, provider, tool string, args map[string]any) (json.RawMessage, error) {
	srv, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	return srv.CallTool(ctx, tool, args)
}

// ListTools returns the tools the named provider serves.
func (s *Supervisor) ListTools(ctx context.Context, provider string) ([]domain.ToolInfo, error) {
	srv, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	return srv.ListTools(ctx)
}

func (s *Supervisor) lookup(provider string) (*Server, error) {
	srv, ok := s.Server(provider)
	if !ok {
		s.mu.RLock()
		failure := s.failures[provider]
		s.mu.RUnlock()
		if failure != nil {
			return nil, failure
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	return srv, nil
}

// Status reports running workers and providers that failed to start.
func (s *Supervisor) Status() []domain.ToolServerStatus {
	s.mu.RLock()
	servers := make([]*Server, 0, len(s.servers))
	for _, srv := range s.servers {
		servers = append(servers, srv)
	}
	out := make([]domain.ToolServerStatus, 0, len(s.servers)+len(s.failures))
	for name, err := range s.failures {
		out = append(out, domain.ToolServerStatus{Name: name, Err: err})
	}
	s.mu.RUnlock()

	for _, srv := range servers {
		out = append(out, srv.status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shutdown stops every worker and clears the table. It is safe to call
// more than once and tolerates workers that already exited.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	servers := s.servers
	s.servers = make(map[string]*Server)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for name, srv := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.stop(ctx, s.grace)
			logger.Info("tool provider %s stopped", name)
		}()
	}
	wg.Wait()
	return nil
}
