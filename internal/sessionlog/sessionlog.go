// Package sessionlog persists captured output to one plain-text file per
// application session. Files are named by creation time and a fixed number of
// historical files is retained; everything older is pruned at startup and
// after each append. Writes happen on a single background goroutine behind a
// bounded queue so producers never block on disk I/O; if the writer cannot
// keep up with a burst, excess lines are dropped rather than queued without
// limit.
package sessionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxFiles is the retention count applied when none is configured.
	DefaultMaxFiles = 10

	// EnvPathOverride names the environment variable that, when set, fixes
	// the active log file path instead of a generated timestamped one.
	EnvPathOverride = "BOTHERD_LOG_PATH"

	// fileTimeLayout yields names like 08-29-26_14-03-55.log.
	fileTimeLayout = "01-02-06_15-04-05"
)

// Options configures a Writer.
type Options struct {
	Dir      string // log directory; retention is enforced here
	Path     string // explicit active file path; overrides Dir naming
	MaxFiles int    // retained file count (default DefaultMaxFiles)
}

// Writer appends lines to the session log from a dedicated goroutine.
// Log never blocks the caller; when the queue is full the line is dropped,
// matching the best-effort nature of a diagnostic log.
type Writer struct {
	path     string
	dir      string
	maxFiles int

	ch       chan string
	quit     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	shutOnce sync.Once
}

// New opens the session log file and prunes the log directory to the
// retention count. The environment override takes precedence over both
// Options.Path and the generated name.
func New(opts Options) (*Writer, error) {
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	path := os.Getenv(EnvPathOverride)
	if path == "" {
		path = opts.Path
	}
	if path == "" {
		if opts.Dir == "" {
			return nil, fmt.Errorf("sessionlog: no dir or path configured")
		}
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, err
		}
		path = filepath.Join(opts.Dir, time.Now().Format(fileTimeLayout)+".log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		path:     path,
		dir:      opts.Dir,
		maxFiles: maxFiles,
		ch:       make(chan string, 1024),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.rotate()
	go w.run(f)
	return w, nil
}

// Path reports the active log file path.
func (w *Writer) Path() string { return w.path }

// Log enqueues one line for appending. Safe for concurrent use; a no-op
// after Shutdown.
func (w *Writer) Log(line string) {
	if w.closed.Load() {
		return
	}
	select {
	case w.ch <- line:
	default:
		// queue full; drop rather than stall a reader goroutine
	}
}

// Logf formats and enqueues one line.
func (w *Writer) Logf(format string, args ...any) {
	w.Log(fmt.Sprintf(format, args...))
}

// Shutdown flushes queued lines and stops the background goroutine. It
// blocks until the goroutine has exited, so callers can rely on the file
// being complete afterwards.
func (w *Writer) Shutdown() {
	w.shutOnce.Do(func() {
		w.closed.Store(true)
		close(w.quit)
		<-w.done
	})
}

func (w *Writer) run(f *os.File) {
	defer close(w.done)
	defer func() { _ = f.Close() }()
	for {
		select {
		case line := <-w.ch:
			w.append(f, line)
		case <-w.quit:
			// drain whatever was enqueued before shutdown
			for {
				select {
				case line := <-w.ch:
					w.append(f, line)
				default:
					_ = f.Sync()
					return
				}
			}
		}
	}
}

func (w *Writer) append(f *os.File, line string) {
	// I/O errors are swallowed; the session log is best-effort.
	_, _ = f.WriteString(line + "\n")
	w.rotate()
}

// rotate prunes the log directory down to the retention count, deleting the
// oldest files first. Ordering uses modification time, the closest portable
// stand-in for creation time of append-only files created once per session.
func (w *Writer) rotate() {
	if w.dir == "" {
		return
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	type logFile struct {
		path string
		mod  time.Time
	}
	var files []logFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{path: filepath.Join(w.dir, e.Name()), mod: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for len(files) > w.maxFiles {
		_ = os.Remove(files[0].path)
		files = files[1:]
	}
}
