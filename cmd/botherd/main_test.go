package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBuildRootHasSubcommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{"run": false, "restart": false, "status": false, "logs": false}
	for _, c := range root.Commands() {
		name := strings.Fields(c.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestRootHasConfigFlag(t *testing.T) {
	root := buildRoot()
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("missing --config persistent flag")
	}
}

func TestQueryAPIStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"running":true,"pid":1234}`))
	}))
	defer srv.Close()

	if err := queryAPI(APIFlags{APIUrl: srv.URL, APITimeout: 2 * time.Second}, "/status"); err != nil {
		t.Fatalf("queryAPI: %v", err)
	}
}

func TestQueryAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := queryAPI(APIFlags{APIUrl: srv.URL, APITimeout: 2 * time.Second}, "/status")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error body, got %v", err)
	}
}

func TestQueryAPIUnreachable(t *testing.T) {
	err := queryAPI(APIFlags{APIUrl: "http://127.0.0.1:1", APITimeout: 500 * time.Millisecond}, "/status")
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRunRequiresScript(t *testing.T) {
	if err := runLauncher("", RunFlags{Quiet: true}); err == nil || !strings.Contains(err.Error(), "bot.script") {
		t.Fatalf("expected missing script error, got %v", err)
	}
}
