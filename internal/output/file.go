package output

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// AppendFile is an io.Writer that appends each write to a file while holding
// an exclusive lock on a sibling ".lock" file, so concurrent benchmark
// processes sharing one output file never interleave lines.
type AppendFile struct {
	mu   sync.Mutex
	file *os.File
	lock *flock.Flock
}

// OpenAppendFile opens path for appending, creating it if needed.
func OpenAppendFile(path string) (*AppendFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &AppendFile{file: f, lock: flock.New(path + ".lock")}, nil
}

func (a *AppendFile) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock output file: %w", err)
	}
	defer func() { _ = a.lock.Unlock() }()

	return a.file.Write(p)
}

// Close closes the file and releases the lock handle.
func (a *AppendFile) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.lock.Close()
	return a.file.Close()
}
