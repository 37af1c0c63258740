// internal/rolllog/rolllog.go
package rolllog

import (
	"os"
	"path/filepath"
	"sync"
)

// Log is a size-bounded append-only line store. When the stored size
// exceeds the budget, the oldest half is discarded before the next
// append; truncation never happens mid-write.
//
// Every failure is swallowed: logging must never abort the monitoring
// loop.
type Log struct {
	mu   sync.Mutex
	path string
	max  int64
}

// New returns a rolling log over path with a byte budget.
func New(path string, maxBytes int64) *Log {
	return &Log{path: path, max: maxBytes}
}

// Init creates the log directory and, if the file does not exist yet,
// writes a header line. Best effort.
func (l *Log) Init(header string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	if _, err := os.Stat(l.path); err == nil {
		return
	}
	_ = os.WriteFile(l.path, []byte(header+"\n"), 0o644)
}

// Append writes one line, truncating first if the budget is exceeded.
func (l *Log) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if info, err := os.Stat(l.path); err == nil && info.Size() > l.max {
		l.truncate()
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line + "\n")
}

// truncate keeps the trailing half of the budget, byte-oriented. A read
// or write failure leaves the file as it was.
func (l *Log) truncate() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	keep := l.max / 2
	if int64(len(data)) > keep {
		data = data[int64(len(data))-keep:]
	}
	_ = os.WriteFile(l.path, data, 0o644)
}
