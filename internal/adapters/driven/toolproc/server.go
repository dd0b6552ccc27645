package toolproc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/logger"
)

// ProviderConfig describes how to launch one worker.
type ProviderConfig struct {
	Name           string
	Command        string
	Args           []string
	Env            map[string]string
	Dir            string
	ReadyPattern   string
	StartupTimeout time.Duration
	CallTimeout    time.Duration
}

// ConfigFromSettings converts configured provider settings.
func ConfigFromSettings(s domain.ToolProviderSettings) ProviderConfig {
	return ProviderConfig{
		Name:           s.Name,
		Command:        s.Command,
		Args:           s.Args,
		Env:            s.Env,
		Dir:            s.Dir,
		ReadyPattern:   s.ReadyPattern,
		StartupTimeout: s.StartupTimeout,
		CallTimeout:    s.CallTimeout,
	}
}

func (c *ProviderConfig) applyDefaults() {
	if c.ReadyPattern == "" {
		c.ReadyPattern = domain.DefaultReadyPattern
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = domain.DefaultStartupTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = domain.DefaultCallTimeout
	}
}

// Server owns one worker process and its channel.
type Server struct {
	cfg ProviderConfig
	log *slog.Logger

	cmd       *exec.Cmd
	channel   *Channel
	stdin     io.WriteCloser
	ready     atomic.Bool
	startedAt time.Time

	readyOnce sync.Once
	readyCh   chan struct{}
	exited    chan struct{}
	exitErr   error
}

func newServer(cfg ProviderConfig) *Server {
	cfg.applyDefaults()
	return &Server{
		cfg:     cfg,
		log:     logger.With("worker", cfg.Name),
		readyCh: make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

// Name returns the provider name.
func (s *Server) Name() string {
	return s.cfg.Name
}

// Ready reports whether the worker completed its handshake and is still running.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// start spawns the worker and waits for exactly one handshake outcome:
// readiness, exit, timeout or cancellation.
func (s *Server) start(ctx context.Context) error {
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	cmd.Env = os.Environ()
	for k, v := range s.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %s: stdin: %w", domain.ErrProcessLifecycle, s.cfg.Name, err)
	}
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: spawn %s: %w", domain.ErrProcessLifecycle, s.cfg.Name, s.cfg.Command, err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.startedAt = time.Now()
	s.channel = NewChannel(s.cfg.Name, stdoutR, stdin, s.cfg.CallTimeout, s.log)

	go s.drainStderr(stderrR)
	go func() {
		s.exitErr = cmd.Wait()
		s.ready.Store(false)
		stdoutW.Close()
		stderrW.Close()
		close(s.exited)
		s.channel.Close(fmt.Errorf("%w: %s exited: %s", domain.ErrProcessLifecycle, s.cfg.Name, describeExit(s.exitErr)))
	}()

	timer := time.NewTimer(s.cfg.StartupTimeout)
	defer timer.Stop()

	select {
	case <-s.readyCh:
		s.ready.Store(true)
		s.log.Info("worker ready", "pid", cmd.Process.Pid)
		return nil
	case <-s.exited:
		return fmt.Errorf("%w: %s exited before ready: %s", domain.ErrProcessLifecycle, s.cfg.Name, describeExit(s.exitErr))
	case <-timer.C:
		s.kill()
		return fmt.Errorf("%w: %s not ready after %s", domain.ErrProcessLifecycle, s.cfg.Name, s.cfg.StartupTimeout)
	case <-ctx.Done():
		s.kill()
		return fmt.Errorf("%w: %s start cancelled: %w", domain.ErrProcessLifecycle, s.cfg.Name, ctx.Err())
	}
}

// drainStderr logs diagnostic output and watches for the readiness marker.
func (s *Server) drainStderr(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			s.log.Debug(line)
			if strings.Contains(line, s.cfg.ReadyPattern) {
				s.readyOnce.Do(func() { close(s.readyCh) })
			}
		}
		if err != nil {
			return
		}
	}
}

// Call sends a request to the worker.
func (s *Server) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("%w: %s is not ready", domain.ErrProcessLifecycle, s.cfg.Name)
	}
	return s.channel.Call(ctx, method, params)
}

// CallTool invokes a named tool with arguments.
func (s *Server) CallTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	return s.Call(ctx, MethodCall, CallParams{Name: tool, Arguments: args})
}

// ListTools asks the worker which tools it serves.
func (s *Server) ListTools(ctx context.Context) ([]domain.ToolInfo, error) {
	raw, err := s.Call(ctx, MethodList, nil)
	if err != nil {
		return nil, err
	}
	var res ListResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: %s: decode tools/list: %w", domain.ErrToolError, s.cfg.Name, err)
	}
	tools := make([]domain.ToolInfo, len(res.Tools))
	for i, t := range res.Tools {
		tools[i] = domain.ToolInfo{Name: t.Name, Description: t.Description}
	}
	return tools, nil
}

// stop asks the worker to exit, killing it after grace. It is a no-op for
// a worker that already exited.
func (s *Server) stop(ctx context.Context, grace time.Duration) {
	if s.cmd == nil {
		return
	}
	select {
	case <-s.exited:
		return
	default:
	}

	s.ready.Store(false)
	_ = s.stdin.Close()
	if runtime.GOOS == "windows" {
		s.kill()
	} else if err := s.cmd.Process.Signal(terminateSignal); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.log.Warn("terminate failed", "error", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-s.exited:
		return
	case <-timer.C:
		s.log.Warn("worker ignored terminate, killing", "grace", grace)
	case <-ctx.Done():
	}
	s.kill()
	<-s.exited
}

func (s *Server) kill() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.log.Warn("kill failed", "error", err)
	}
}

// status samples process resource usage while the worker runs.
func (s *Server) status() domain.ToolServerStatus {
	st := domain.ToolServerStatus{
		Name:      s.cfg.Name,
		Ready:     s.Ready(),
		StartedAt: s.startedAt,
	}
	if s.cmd == nil || s.cmd.Process == nil {
		return st
	}
	st.PID = s.cmd.Process.Pid

	select {
	case <-s.exited:
		st.Err = fmt.Errorf("%w: %s exited: %s", domain.ErrProcessLifecycle, s.cfg.Name, describeExit(s.exitErr))
		return st
	default:
	}

	proc, err := process.NewProcess(int32(st.PID))
	if err != nil {
		return st
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		st.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	return st
}

func describeExit(err error) string {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return "exit code 0"
	case errors.As(err, &exitErr):
		return fmt.Sprintf("exit code %d", exitErr.ExitCode())
	default:
		return err.Error()
	}
}
