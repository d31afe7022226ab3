// Package ipc implements the loopback control channel used by a second
// botherd process (e.g. a settings editor running as its own executable) to
// request a restart of the supervised bot in the main process. The protocol
// is a single fixed UTF-8 string over TCP with no framing or authentication;
// the listener binds loopback only.
package ipc

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/botherd/internal/metrics"
)

const (
	// Sentinel is the exact payload that requests a restart. Anything else
	// is ignored and the connection dropped.
	Sentinel = "RESTART_BOT"

	// DefaultAddr is the fixed loopback address the listener binds.
	DefaultAddr = "127.0.0.1:9876"

	// readBufSize bounds the per-connection read; the sentinel fits with
	// room to spare and nothing longer is ever valid.
	readBufSize = 32

	readTimeout = 2 * time.Second
)

// ErrBindFailed is wrapped into errors returned when the listener cannot
// bind its address (typically: another instance is already running).
var ErrBindFailed = fmt.Errorf("ipc: bind failed")

// Server listens on a loopback address and raises an atomic flag when the
// restart sentinel arrives. The main control loop polls and consumes the
// flag; the server never performs the restart itself.
type Server struct {
	addr      string
	log       *slog.Logger
	ln        net.Listener
	requested atomic.Bool
	closeOnce sync.Once
}

// NewServer returns an unstarted Server. An empty addr means DefaultAddr.
func NewServer(addr string, log *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{addr: addr, log: log}
}

// Start binds the listener and begins accepting connections on a background
// goroutine. It returns an error wrapping ErrBindFailed when the address is
// unavailable.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBindFailed, s.addr, err)
	}
	s.ln = ln
	go s.acceptLoop()
	return nil
}

// Addr reports the bound address, useful when addr was ":0" in tests.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// TakeRestartRequest reports whether a restart was requested since the last
// call and resets the flag, so each request is consumed exactly once.
func (s *Server) TakeRestartRequest() bool {
	return s.requested.Swap(false)
}

// RestartRequested reports the flag without consuming it.
func (s *Server) RestartRequested() bool { return s.requested.Load() }

// Close stops the listener. In-flight connection reads finish on their own.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.ln != nil {
			err = s.ln.Close()
		}
	})
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			// listener closed; nothing to clean up
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	buf := make([]byte, readBufSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return
	}
	if strings.TrimSpace(string(buf[:n])) == Sentinel {
		s.requested.Store(true)
		metrics.IncIPCRestartRequested()
		s.log.Info("restart requested over ipc", "remote", conn.RemoteAddr().String())
	}
}

// Send connects to addr and writes the restart sentinel, fire-and-forget.
// The caller side of the protocol: connection failures mean the main process
// is not running and are returned for logging only, never retried.
func Send(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	conn, err := net.DialTimeout("tcp", addr, readTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	_, err = conn.Write([]byte(Sentinel))
	return err
}
