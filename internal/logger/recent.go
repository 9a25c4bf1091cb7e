package logger

import (
	"strings"
	"sync"
)

// DefaultRecentCapacity is the number of formatted lines kept for Recent.
const DefaultRecentCapacity = 200

var recent = newRecentBuffer(DefaultRecentCapacity)

// recentBuffer keeps the last N log lines. It is an io.Writer so it can sit
// behind the slog text handler next to the real output.
type recentBuffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newRecentBuffer(capacity int) *recentBuffer {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &recentBuffer{lines: make([]string, capacity)}
}

func (b *recentBuffer) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	if text == "" {
		return len(p), nil
	}
	b.mu.Lock()
	for _, line := range strings.Split(text, "\n") {
		b.lines[b.next] = line
		b.next = (b.next + 1) % len(b.lines)
		if b.next == 0 {
			b.full = true
		}
	}
	b.mu.Unlock()
	return len(p), nil
}

func (b *recentBuffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		out := make([]string, b.next)
		copy(out, b.lines[:b.next])
		return out
	}
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.next:]...)
	out = append(out, b.lines[:b.next]...)
	return out
}

func (b *recentBuffer) reset() {
	b.mu.Lock()
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.next = 0
	b.full = false
	b.mu.Unlock()
}

// Recent returns the captured log lines, oldest first.
func Recent() []string {
	return recent.snapshot()
}

// ResetRecent drops every captured line.
func ResetRecent() {
	recent.reset()
}
