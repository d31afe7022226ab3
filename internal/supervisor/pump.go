package supervisor

import (
	"bufio"
	"io"
	"strings"

	"github.com/loykin/botherd/internal/logbuf"
	"github.com/loykin/botherd/internal/metrics"
)

// maxLineBytes bounds a single captured line; anything longer is split by
// the scanner's buffer limit rather than stalling the pump.
const maxLineBytes = 1024 * 1024

// pump reads one child stream until EOF, splitting on line boundaries, and
// fans each surviving line out to the session log, the ring buffer, and the
// live channel. It runs once per stream per run and self-terminates when the
// stream closes (process exit or kill). A malformed read affects only the
// current line; the pump keeps going.
func (s *Supervisor) pump(stream logbuf.Stream, r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if s.isNoise(line) {
			metrics.IncFiltered()
			continue
		}
		s.forward(stream, line)
	}
	if err := sc.Err(); err != nil {
		s.log.Debug("stream reader ended", "stream", stream.String(), "err", err)
	}
}

// forward delivers one line to all three sinks. Ordering within a stream is
// preserved; interleaving between stdout and stderr is arrival order at the
// shared buffer, not a timestamp merge.
func (s *Supervisor) forward(stream logbuf.Stream, text string) {
	tag := s.spec.scriptTag()
	if stream == logbuf.StreamStderr {
		s.journalf("%s[stderr] %s", tag, text)
	} else {
		s.journalf("%s %s", tag, text)
	}
	line := logbuf.Line{Stream: stream, Text: text}
	s.ring.Push(line)
	select {
	case s.notify <- line:
	default:
	}
	metrics.IncLine(stream.String())
}

func (s *Supervisor) isNoise(line string) bool {
	for _, substr := range DefaultDenylist {
		if strings.Contains(line, substr) {
			return true
		}
	}
	for _, substr := range s.spec.Denylist {
		if substr != "" && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
