// Package supervisor owns the lifecycle of the supervised bot process: it
// spawns the child with captured stdio, pumps both streams into the shared
// ring buffer and session log, watches for exit, and performs forceful
// tree-wide termination on stop. At most one child is current at a time; the
// ring buffer and session log outlive any single run, so a reader goroutine
// from a just-stopped run draining its final lines is harmless.
package supervisor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/botherd/internal/env"
	"github.com/loykin/botherd/internal/logbuf"
	"github.com/loykin/botherd/internal/metrics"
)

// Journal is the session log sink. *sessionlog.Writer satisfies it; tests
// substitute an in-memory recorder.
type Journal interface {
	Log(line string)
	Logf(format string, args ...any)
}

// notifyBacklog bounds the live-line channel; a stalled consumer loses
// lines rather than stalling the reader goroutines.
const notifyBacklog = 256

// RunHooks receive run boundaries for history persistence. Either func may
// be nil.
type RunHooks struct {
	Started func(pid int, startedAt time.Time)
	Stopped func(pid int, startedAt time.Time, exitErr error)
}

// Supervisor manages one supervised bot process at a time.
type Supervisor struct {
	spec Spec

	ring    *logbuf.Buffer
	journal Journal
	log     *slog.Logger
	notify  chan logbuf.Line

	reload func() error
	hooks  RunHooks

	// opMu serializes Start, Stop and Restart end to end so that at most
	// one lifecycle operation is in flight; without it two Starts can both
	// pass the nil-handle check and the loser's child leaks unkillable.
	opMu sync.Mutex

	mu        sync.Mutex
	cmd       *runHandle
	restarts  int
	lastRunWG *sync.WaitGroup
}

// runHandle carries the per-run state shared between Start, Stop and the
// watcher goroutine.
type runHandle struct {
	pid       int
	startedAt time.Time
	kill      func() (string, error)
}

// New constructs a Supervisor. The ring buffer is required; journal and log
// may be nil (journal writes are then skipped, logging falls back to the
// default slog logger).
func New(spec Spec, ring *logbuf.Buffer, journal Journal, log *slog.Logger) *Supervisor {
	spec.Normalize()
	if ring == nil {
		ring = logbuf.New(0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		spec:    spec,
		ring:    ring,
		journal: journal,
		log:     log,
		notify:  make(chan logbuf.Line, notifyBacklog),
	}
}

// Ring exposes the shared ring buffer for snapshotting.
func (s *Supervisor) Ring() *logbuf.Buffer { return s.ring }

// Notify is the live-line channel for the presentation layer. Lines are
// dropped, not queued indefinitely, when the consumer falls behind.
func (s *Supervisor) Notify() <-chan logbuf.Line { return s.notify }

// SetReloadHook registers the settings-reload callback invoked after a
// restart has launched the new process.
func (s *Supervisor) SetReloadHook(fn func() error) { s.reload = fn }

// SetRunHooks registers history persistence callbacks.
func (s *Supervisor) SetRunHooks(h RunHooks) { s.hooks = h }

// Status returns a snapshot of the current run.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Restarts: s.restarts}
	if s.cmd != nil {
		st.Running = true
		st.PID = s.cmd.pid
		st.StartedAt = s.cmd.startedAt
	}
	return st
}

// Start spawns the bot process and launches the two stream pumps and the
// exit watcher. It returns the OS pid immediately; the child runs until it
// exits or Stop is called. Spawn failure is fatal to this attempt only.
// Concurrent callers are serialized; the loser gets ErrAlreadyRunning.
func (s *Supervisor) Start() (int, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.start()
}

func (s *Supervisor) start() (int, error) {
	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return 0, ErrAlreadyRunning
	}
	spec := s.spec
	s.mu.Unlock()

	cmd := spec.buildCommand()
	cmd.Env = env.Merge(spec.childEnv())
	configureSysProcAttr(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	if err := cmd.Start(); err != nil {
		metrics.IncSpawnFailure()
		s.log.Error("failed to start bot process", "script", spec.Script, "err", err)
		s.journalf("%s failed to start %s: %v", stamp(), spec.Script, err)
		return 0, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	pid := cmd.Process.Pid
	startedAt := time.Now()
	handle := &runHandle{pid: pid, startedAt: startedAt, kill: func() (string, error) { return killTree(pid) }}

	runWG := &sync.WaitGroup{}
	pumpWG := &sync.WaitGroup{}
	s.mu.Lock()
	s.cmd = handle
	s.lastRunWG = runWG
	s.mu.Unlock()

	runWG.Add(3)
	pumpWG.Add(2)
	go func() {
		defer runWG.Done()
		defer pumpWG.Done()
		s.pump(logbuf.StreamStdout, stdout)
	}()
	go func() {
		defer runWG.Done()
		defer pumpWG.Done()
		s.pump(logbuf.StreamStderr, stderr)
	}()
	go func() {
		defer runWG.Done()
		// both pipes must be drained before Wait reaps the child
		pumpWG.Wait()
		s.watchExit(handle, cmd.Wait)
	}()

	metrics.IncStart()
	if s.hooks.Started != nil {
		s.hooks.Started(pid, startedAt)
	}
	s.log.Info("bot process started", "script", spec.Script, "pid", pid, "workdir", spec.WorkDir)
	return pid, nil
}

// Stop forcefully terminates the current process tree and appends the stop
// sentinel to the shared log. With no active process it is a no-op: no
// sentinel, no error. The handle is always cleared, even when the platform
// kill reports failure.
func (s *Supervisor) Stop() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.stop()
}

func (s *Supervisor) stop() error {
	s.mu.Lock()
	handle := s.cmd
	s.cmd = nil
	s.mu.Unlock()
	if handle == nil {
		return nil
	}

	s.log.Info("terminating bot process tree", "pid", handle.pid)
	detail, err := handle.kill()
	if detail != "" {
		s.journalf("%s kill result: %s", stamp(), detail)
	}
	if err != nil {
		s.log.Warn("bot process termination failed", "pid", handle.pid, "err", err)
		s.journalf("%s failed to terminate pid %d: %v", stamp(), handle.pid, err)
	}
	s.emitEvent(s.spec.StopMessage)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTerminateFailed, err)
	}
	return nil
}

// Restart stops any current process, appends message to the shared log, and
// starts a new one. The caller-visible ordering in the ring buffer is
// always: stop sentinel, message, first output of the new run. Concurrent
// restarts do not interleave: each produces its own stop/message/start
// sequence. The restart counter advances and the reload hook fires only
// when the new process actually launched.
func (s *Supervisor) Restart(message string) error {
	if message == "" {
		message = DefaultRestartMessage
	}
	s.opMu.Lock()
	stopErr := s.stop()
	s.emitEvent(message)
	_, startErr := s.start()
	if startErr == nil {
		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
		metrics.IncRestart()
	}
	s.opMu.Unlock()

	if startErr == nil && s.reload != nil {
		if err := s.reload(); err != nil {
			s.log.Warn("settings reload after restart failed", "err", err)
		}
	}
	if startErr != nil {
		return startErr
	}
	return stopErr
}

// Quiesce blocks until the most recent run's pump and watcher goroutines
// have exited. Intended for tests and orderly shutdown.
func (s *Supervisor) Quiesce() {
	s.mu.Lock()
	wg := s.lastRunWG
	s.mu.Unlock()
	if wg != nil {
		wg.Wait()
	}
}

// watchExit reaps the child and records the exit. The raw exit is a
// log-file-only event: the ring buffer already carries the stop sentinel
// for forced stops, and a duplicate termination line would only confuse the
// output panel.
func (s *Supervisor) watchExit(handle *runHandle, wait func() error) {
	err := wait()
	if err != nil {
		s.log.Info("bot process exited", "pid", handle.pid, "err", err)
		s.journalf("%s %s exited: %v", stamp(), s.spec.scriptTag(), err)
	} else {
		s.log.Info("bot process exited", "pid", handle.pid)
		s.journalf("%s %s exited cleanly", stamp(), s.spec.scriptTag())
	}

	s.mu.Lock()
	if s.cmd == handle {
		s.cmd = nil
	}
	s.mu.Unlock()

	metrics.IncStop()
	if s.hooks.Stopped != nil {
		s.hooks.Stopped(handle.pid, handle.startedAt, err)
	}
}

// emitEvent fans a timestamped lifecycle line out to the ring buffer, the
// session log, and the live channel.
func (s *Supervisor) emitEvent(message string) {
	line := logbuf.Line{Stream: logbuf.StreamEvent, Text: stamp() + " " + message}
	s.ring.Push(line)
	s.journalf("%s", line.Text)
	select {
	case s.notify <- line:
	default:
	}
}

func (s *Supervisor) journalf(format string, args ...any) {
	if s.journal != nil {
		s.journal.Logf(format, args...)
	}
}

func stamp() string { return time.Now().Format(eventTimeLayout) }
