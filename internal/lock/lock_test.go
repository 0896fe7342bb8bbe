package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	tmpDir := t.TempDir()

	l, err := Acquire(tmpDir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if l.Path() != filepath.Join(tmpDir, FileName) {
		t.Errorf("Path() = %q", l.Path())
	}
	if pid := Holder(tmpDir); pid != os.Getpid() {
		t.Errorf("Holder() = %d, want %d", pid, os.Getpid())
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("lock file left behind after Release")
	}
	if pid := Holder(tmpDir); pid != 0 {
		t.Errorf("Holder() after release = %d, want 0", pid)
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	tmpDir := t.TempDir()

	l1, err := Acquire(tmpDir)
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(tmpDir)
	if err == nil {
		t.Fatal("second Acquire() should fail")
	}

	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected *HeldError, got %T: %v", err, err)
	}
	if held.PID != os.Getpid() {
		t.Errorf("HeldError.PID = %d, want %d", held.PID, os.Getpid())
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	l, err := Acquire(t.TempDir())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestParsePID(t *testing.T) {
	tests := map[string]int{
		"pid=42\ntime=x\n": 42,
		"time=x\npid=7":    7,
		"":                 0,
		"pid=abc":          0,
	}
	for in, want := range tests {
		if got := parsePID(in); got != want {
			t.Errorf("parsePID(%q) = %d, want %d", in, got, want)
		}
	}
}
