package transport

import "sync"

// DefaultLineBuffer is the capacity used when none is configured.
const DefaultLineBuffer = 100

// LineBuffer keeps the most recent raw lines that no handler recognized.
// When full, the oldest line is evicted.
type LineBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewLineBuffer creates a buffer holding up to max lines. A max of zero or
// less uses DefaultLineBuffer.
func NewLineBuffer(max int) *LineBuffer {
	if max <= 0 {
		max = DefaultLineBuffer
	}
	return &LineBuffer{max: max}
}

// Add appends a line.
func (b *LineBuffer) Add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == b.max {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:len(b.lines)-1]
	}
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *LineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of buffered lines.
func (b *LineBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}
