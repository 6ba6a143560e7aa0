package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/checksum"
)

func TestWatcherFlagsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stale atomic.Bool
	w, err := New(func() { stale.Store(true) }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	w.SetTarget(path, checksum.Sum([]byte("original")))

	// Give the watcher time to pick up the target before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("modified"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for !stale.Load() {
		select {
		case <-deadline:
			t.Fatal("stale flag never set after on-disk change")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWatcherIgnoresIdenticalRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := []byte("same content")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	var stale atomic.Bool
	w, err := New(func() { stale.Store(true) }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	w.SetTarget(path, checksum.Sum(content))
	time.Sleep(100 * time.Millisecond)

	// Rewrite with identical bytes: checksum matches, no staleness.
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if stale.Load() {
		t.Error("identical rewrite flagged as stale")
	}
}
