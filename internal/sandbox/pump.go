package sandbox

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"
)

const pumpChunkSize = 4096

type pumpOutput struct {
	data []byte
	eof  bool
}

// drainPipe reads r in pumpChunkSize chunks until EOF, the deadline passes,
// or the accumulated buffer reaches limit bytes (limit<=0 means unbounded).
// A per-read deadline stands in for a select(2)-style readiness wait, and
// running one of these per pipe in its own goroutine lets both fds drain
// concurrently without a single-threaded multiplex loop.
func drainPipe(r *os.File, limit int64, deadline time.Time, done chan<- pumpOutput) {
	var buf bytes.Buffer
	chunk := make([]byte, pumpChunkSize)
	for {
		if time.Until(deadline) <= 0 {
			done <- pumpOutput{data: buf.Bytes(), eof: false}
			return
		}
		_ = r.SetReadDeadline(deadline)
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if limit > 0 && int64(buf.Len()) >= limit {
			done <- pumpOutput{data: buf.Bytes(), eof: false}
			return
		}
		if err != nil {
			done <- pumpOutput{data: buf.Bytes(), eof: n == 0 && errors.Is(err, io.EOF)}
			return
		}
	}
}

// pumpResult is what the reaper needs: captured bytes and whether each
// stream reached EOF on its own (as opposed to being cut off by the
// deadline or the output limit).
type pumpResult struct {
	stdout    []byte
	stdoutEOF bool
	stderr    []byte
	stderrEOF bool
}

// runPump drains stdout and stderr concurrently, each stream capped at
// outputLimit independently and both bounded by deadline. It never kills the child; exiting this
// function only means it is time for the reaper to act.
func runPump(l *launch, outputLimit int64, deadline time.Time) pumpResult {
	stdoutCh := make(chan pumpOutput, 1)
	stderrCh := make(chan pumpOutput, 1)
	go drainPipe(l.stdoutR, outputLimit, deadline, stdoutCh)
	go drainPipe(l.stderrR, outputLimit, deadline, stderrCh)

	so := <-stdoutCh
	se := <-stderrCh
	return pumpResult{stdout: so.data, stdoutEOF: so.eof, stderr: se.data, stderrEOF: se.eof}
}
