package ipc

import (
	"errors"
	"net"
	"testing"
	"time"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFlag(t *testing.T, s *Server, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.RestartRequested() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("flag did not become %v in time", want)
}

func TestSentinelSetsFlag(t *testing.T) {
	s := startServer(t)
	if err := Send(s.Addr()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFlag(t, s, true)
	if !s.TakeRestartRequest() {
		t.Fatal("TakeRestartRequest returned false with flag set")
	}
	if s.RestartRequested() {
		t.Fatal("flag not consumed")
	}
	if s.TakeRestartRequest() {
		t.Fatal("second take should be false")
	}
}

func TestTrimmedPayloadAccepted(t *testing.T) {
	s := startServer(t)
	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_, _ = conn.Write([]byte("  RESTART_BOT\n"))
	_ = conn.Close()
	waitFlag(t, s, true)
}

func TestNearMissPayloadsIgnored(t *testing.T) {
	s := startServer(t)
	for _, payload := range []string{"restart_bot", "RESTART", "", "RESTART_BOT_NOW"} {
		conn, err := net.Dial("tcp", s.Addr())
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		if payload != "" {
			_, _ = conn.Write([]byte(payload))
		}
		_ = conn.Close()
	}
	// give the handlers a moment to run before asserting the negative
	time.Sleep(200 * time.Millisecond)
	if s.RestartRequested() {
		t.Fatal("flag set by invalid payload")
	}
}

func TestBindFailureTyped(t *testing.T) {
	s := startServer(t)
	dup := NewServer(s.Addr(), nil)
	err := dup.Start()
	if err == nil {
		_ = dup.Close()
		t.Fatal("expected bind error on occupied address")
	}
	if !errors.Is(err, ErrBindFailed) {
		t.Fatalf("error %v does not wrap ErrBindFailed", err)
	}
}

func TestSendToDeadAddressFails(t *testing.T) {
	// grab a free port and close it again so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	if err := Send(addr); err == nil {
		t.Fatal("expected connection error")
	}
}
