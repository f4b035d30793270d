// Package iox provides the writer plumbing used by command execution:
// fan-out writes for live echo and bounded capture buffers.
package iox

import (
	"io"
	"sync"
)

// Tee writes everything it receives to all of its writers. Unlike
// io.MultiWriter it keeps writing to the remaining writers when one
// fails, returning the first error seen.
type Tee struct {
	writers []io.Writer
}

// NewTee makes a Tee over writers. Nil writers are skipped.
func NewTee(writers ...io.Writer) *Tee {
	t := &Tee{}
	for _, w := range writers {
		if w != nil {
			t.writers = append(t.writers, w)
		}
	}
	return t
}

func (t *Tee) Write(p []byte) (int, error) {
	var firstErr error
	for _, w := range t.writers {
		if _, err := w.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return len(p), nil
}

// LimitWriter captures up to Max bytes and silently discards the rest,
// keeping count of what was dropped. Safe for concurrent use, since
// stdout and stderr pipes write from separate goroutines.
type LimitWriter struct {
	mu        sync.Mutex
	w         io.Writer
	max       int64
	written   int64
	discarded int64
}

// NewLimitWriter wraps w with a byte cap. A max of zero or below means
// no limit.
func NewLimitWriter(w io.Writer, max int64) *LimitWriter {
	return &LimitWriter{w: w, max: max}
}

func (l *LimitWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(p)
	if l.max > 0 {
		remaining := l.max - l.written
		if remaining <= 0 {
			l.discarded += int64(n)
			return n, nil
		}
		if int64(n) > remaining {
			l.discarded += int64(n) - remaining
			p = p[:remaining]
		}
	}
	if _, err := l.w.Write(p); err != nil {
		return 0, err
	}
	l.written += int64(len(p))
	return n, nil
}

// Truncated reports whether any bytes were dropped, and how many.
func (l *LimitWriter) Truncated() (bool, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.discarded > 0, l.discarded
}
