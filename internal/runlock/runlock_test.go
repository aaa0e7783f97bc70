package runlock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")

	release, err := Acquire(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()

	// Released lock can be taken again.
	release, err = Acquire(path)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release()
}

func TestAcquireFailsFastWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")

	release, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	if _, err := Acquire(path); !errors.Is(err, ErrHeld) {
		t.Fatalf("second acquire: got %v, want ErrHeld", err)
	}
}

func TestAcquireCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sync.lock")

	release, err := Acquire(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()
}
