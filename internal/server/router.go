package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/botherd/internal/logbuf"
	"github.com/loykin/botherd/internal/store"
	"github.com/loykin/botherd/internal/supervisor"
)

// Controller is the supervisor surface the HTTP API drives.
type Controller interface {
	Status() supervisor.Status
	Restart(message string) error
	Stop() error
}

// Router provides embeddable HTTP handlers for the launcher.
// Endpoints:
//
//	GET  {basePath}/status   current run status
//	GET  {basePath}/logs     ring buffer snapshot
//	GET  {basePath}/history  recent runs (requires a store)
//	POST {basePath}/restart  body: {"message": "..."} (optional)
//	POST {basePath}/stop
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	ctrl     Controller
	ring     *logbuf.Buffer
	hist     store.Store
	basePath string
}

// NewRouter constructs a Router. hist may be nil, disabling /history.
func NewRouter(ctrl Controller, ring *logbuf.Buffer, hist store.Store, basePath string) *Router {
	return &Router{ctrl: ctrl, ring: ring, hist: hist, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/logs", r.handleLogs)
	group.GET("/history", r.handleHistory)
	group.POST("/restart", r.handleRestart)
	group.POST("/stop", r.handleStop)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, ctrl Controller, ring *logbuf.Buffer, hist store.Store) *http.Server {
	r := NewRouter(ctrl, ring, hist, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type logsResp struct {
	Lines []logbuf.Line `json:"lines"`
}

type restartReq struct {
	Message string `json:"message"`
}

type runResp struct {
	PID       int        `json:"pid"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	Running   bool       `json:"running"`
	ExitError string     `json:"exit_error,omitempty"`
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.ctrl.Status())
}

func (r *Router) handleLogs(c *gin.Context) {
	lines := r.ring.Snapshot()
	if lines == nil {
		lines = []logbuf.Line{}
	}
	c.JSON(http.StatusOK, logsResp{Lines: lines})
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.hist == nil {
		c.JSON(http.StatusServiceUnavailable, errorResp{Error: "run history store not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recs, err := r.hist.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	out := make([]runResp, 0, len(recs))
	for _, rec := range recs {
		rr := runResp{PID: rec.PID, StartedAt: rec.StartedAt, Running: rec.Running}
		if rec.StoppedAt.Valid {
			t := rec.StoppedAt.Time
			rr.StoppedAt = &t
		}
		if rec.ExitErr.Valid {
			rr.ExitError = rec.ExitErr.String
		}
		out = append(out, rr)
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleRestart(c *gin.Context) {
	var req restartReq
	// body is optional; an empty message selects the default
	_ = c.ShouldBindJSON(&req)
	if err := r.ctrl.Restart(req.Message); err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.ctrl.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}
