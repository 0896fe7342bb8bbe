package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file created inside a profile directory.
const FileName = "LOCK"

// HeldError is returned when another process holds the profile lock.
type HeldError struct {
	PID  int
	Path string
}

func (e *HeldError) Error() string {
	if e.PID == 0 {
		return fmt.Sprintf("profile is in use by another huddle (%s)", e.Path)
	}
	return fmt.Sprintf("profile is in use by huddle PID %d (%s)", e.PID, e.Path)
}

// Lock is an acquired profile lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive flock on dir/LOCK so only one huddle runs per
// profile. Returns *HeldError if another process already holds it.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, &HeldError{PID: Holder(dir), Path: path}
	}

	if err := writeOwner(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lock owner: %w", err)
	}
	return &Lock{file: f, path: path}, nil
}

// Holder returns the PID recorded in dir/LOCK, or 0 when there is none.
func Holder(dir string) int {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return 0
	}
	return parsePID(string(data))
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release releases the lock. Safe to call on nil receiver and more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove first so a stale file never outlives the holder.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

func writeOwner(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return err
}

func parsePID(content string) int {
	for line := range strings.SplitSeq(content, "\n") {
		if after, ok := strings.CutPrefix(line, "pid="); ok {
			pid, _ := strconv.Atoi(strings.TrimSpace(after))
			return pid
		}
	}
	return 0
}
