package logbuf

import "sync"

// DefaultCapacity is the number of recent lines retained when no explicit
// capacity is configured.
const DefaultCapacity = 200

// Stream identifies the origin of a captured line.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	// StreamEvent marks lifecycle lines emitted by the supervisor itself
	// (stop sentinel, restart message) rather than child output.
	StreamEvent Stream = "event"
)

// String returns the string representation of Stream.
func (s Stream) String() string { return string(s) }

// Line is a single captured unit of output, immutable once stored.
type Line struct {
	Stream Stream `json:"stream"`
	Text   string `json:"text"`
}

// Buffer is a fixed-capacity, insertion-ordered store of recent lines shared
// between producer goroutines and UI consumers. When full, the oldest line is
// evicted first. The buffer outlives any single supervised run.
type Buffer struct {
	mu    sync.Mutex
	lines []Line
	start int // index of the oldest line
	count int
}

// New returns a Buffer holding at most capacity lines. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{lines: make([]Line, capacity)}
}

// Push appends a line, evicting the oldest entry when at capacity.
func (b *Buffer) Push(l Line) {
	b.mu.Lock()
	if b.count == len(b.lines) {
		b.lines[b.start] = l
		b.start = (b.start + 1) % len(b.lines)
	} else {
		b.lines[(b.start+b.count)%len(b.lines)] = l
		b.count++
	}
	b.mu.Unlock()
}

// Snapshot returns a point-in-time copy in insertion order. The caller may
// iterate it without holding any lock.
func (b *Buffer) Snapshot() []Line {
	b.mu.Lock()
	out := make([]Line, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.lines[(b.start+i)%len(b.lines)]
	}
	b.mu.Unlock()
	return out
}

// Len reports the number of stored lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	n := b.count
	b.mu.Unlock()
	return n
}

// Cap reports the fixed capacity.
func (b *Buffer) Cap() int { return len(b.lines) }
