package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/botherd/internal/logbuf"
	"github.com/loykin/botherd/internal/store"
	"github.com/loykin/botherd/internal/store/sqlite"
	"github.com/loykin/botherd/internal/supervisor"
)

type fakeController struct {
	status     supervisor.Status
	restartMsg string
	restarts   int
	stops      int
	fail       error
}

func (f *fakeController) Status() supervisor.Status { return f.status }

func (f *fakeController) Restart(message string) error {
	f.restarts++
	f.restartMsg = message
	return f.fail
}

func (f *fakeController) Stop() error {
	f.stops++
	return f.fail
}

func newHandler(ctrl Controller, ring *logbuf.Buffer, hist store.Store, base string) http.Handler {
	gin.SetMode(gin.TestMode)
	return NewRouter(ctrl, ring, hist, base).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestStatusEndpoint(t *testing.T) {
	fc := &fakeController{status: supervisor.Status{Running: true, PID: 77, Restarts: 2}}
	h := newHandler(fc, logbuf.New(4), nil, "")
	rec, out := doJSON(t, h, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	if out["running"] != true || out["pid"] != float64(77) || out["restarts"] != float64(2) {
		t.Fatalf("body=%v", out)
	}
}

func TestLogsEndpointReturnsSnapshot(t *testing.T) {
	ring := logbuf.New(4)
	ring.Push(logbuf.Line{Stream: logbuf.StreamStdout, Text: "one"})
	ring.Push(logbuf.Line{Stream: logbuf.StreamStderr, Text: "two"})
	h := newHandler(&fakeController{}, ring, nil, "")
	rec, _ := doJSON(t, h, http.MethodGet, "/logs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	var body struct {
		Lines []logbuf.Line `json:"lines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Lines) != 2 || body.Lines[0].Text != "one" || body.Lines[1].Stream != logbuf.StreamStderr {
		t.Fatalf("lines=%+v", body.Lines)
	}
}

func TestRestartEndpointPassesMessage(t *testing.T) {
	fc := &fakeController{}
	h := newHandler(fc, logbuf.New(4), nil, "")
	rec, _ := doJSON(t, h, http.MethodPost, "/restart", `{"message":"from settings"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	if fc.restarts != 1 || fc.restartMsg != "from settings" {
		t.Fatalf("controller saw restarts=%d msg=%q", fc.restarts, fc.restartMsg)
	}
}

func TestRestartEndpointBodyOptional(t *testing.T) {
	fc := &fakeController{}
	h := newHandler(fc, logbuf.New(4), nil, "")
	rec, _ := doJSON(t, h, http.MethodPost, "/restart", "")
	if rec.Code != http.StatusOK || fc.restarts != 1 {
		t.Fatalf("code=%d restarts=%d", rec.Code, fc.restarts)
	}
}

func TestStopEndpointErrorSurfaces(t *testing.T) {
	fc := &fakeController{fail: errors.New("kill utility missing")}
	h := newHandler(fc, logbuf.New(4), nil, "")
	rec, out := doJSON(t, h, http.MethodPost, "/stop", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", rec.Code)
	}
	if !strings.Contains(out["error"].(string), "kill utility") {
		t.Fatalf("body=%v", out)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	h := newHandler(&fakeController{}, logbuf.New(4), nil, "")
	rec, _ := doJSON(t, h, http.MethodGet, "/history", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestHistoryFromStore(t *testing.T) {
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := db.RecordStart(ctx, store.Record{PID: 9, StartedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	h := newHandler(&fakeController{}, logbuf.New(4), db, "")
	rec, _ := doJSON(t, h, http.MethodGet, "/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
	var runs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(runs) != 1 || runs[0]["pid"] != float64(9) {
		t.Fatalf("runs=%v", runs)
	}
}

func TestBasePathApplied(t *testing.T) {
	h := newHandler(&fakeController{}, logbuf.New(4), nil, "api")
	rec, _ := doJSON(t, h, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/status", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unprefixed path served: code=%d", rec.Code)
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"/":     "",
		"api":   "/api",
		"/api/": "/api",
		" /v1 ": "/v1",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q)=%q want %q", in, got, want)
		}
	}
}
