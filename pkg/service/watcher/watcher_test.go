package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/service/watcher"
)

func TestEligible(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"call.txt", true},
		{"notes.md", true},
		{"transcript.json", true},
		{"CALL.TXT", true},
		{"report.pdf", false},
		{"call.txt.tmp", false},
		{"call.txt.part", false},
		{"call.txt.crdownload", false},
		{"call.txt.icloud", false},
		{"sheet.gsheet", false},
		{".hidden.txt", false},
		{"~lock.txt", false},
		{"noextension", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, watcher.Eligible(tc.name)).Equal(tc.want)
		})
	}
}

func TestParseFilename(t *testing.T) {
	t.Run("iso date prefix", func(t *testing.T) {
		meta := watcher.ParseFilename("2026-08-12 Acme discovery call.txt")
		gt.Value(t, meta.Title).Equal("Acme discovery call")
		gt.Value(t, meta.CallDate.Format("2006-01-02")).Equal("2026-08-12")
	})

	t.Run("compact date with underscores", func(t *testing.T) {
		meta := watcher.ParseFilename("call_with_acme_20260812.md")
		gt.Value(t, meta.Title).Equal("call with acme")
		gt.Value(t, meta.CallDate.Format("2006-01-02")).Equal("2026-08-12")
	})

	t.Run("no date", func(t *testing.T) {
		meta := watcher.ParseFilename("pipeline-review-notes.txt")
		gt.Value(t, meta.Title).Equal("pipeline review notes")
		gt.Bool(t, meta.CallDate.IsZero()).True()
	})
}

func TestWatcherDispatch(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	handled := []string{}
	handler := func(ctx context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, filepath.Base(path))
		return nil
	}

	gt.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("hello"), 0o644))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "skip.pdf"), []byte("nope"), 0o644))

	w := watcher.New(dir, handler,
		watcher.WithInterval(20*time.Millisecond),
		watcher.WithQuietPeriod(30*time.Millisecond))

	ctx := context.Background()
	gt.NoError(t, w.Start(ctx)).Required()
	defer w.Stop()

	// written after start, must be picked up once stable
	time.Sleep(10 * time.Millisecond)
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("world"), 0o644))

	gt.Bool(t, eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return contains(handled, "existing.txt") && contains(handled, "late.txt")
	}, time.Second)).True()

	mu.Lock()
	defer mu.Unlock()
	gt.Bool(t, contains(handled, "skip.pdf")).False()

	// stable files dispatch exactly once
	count := 0
	for _, name := range handled {
		if name == "existing.txt" {
			count++
		}
	}
	gt.Value(t, count).Equal(1)
}

func TestWatcherStartErrors(t *testing.T) {
	handler := func(ctx context.Context, path string) error { return nil }

	t.Run("missing directory", func(t *testing.T) {
		w := watcher.New(filepath.Join(t.TempDir(), "nope"), handler)
		gt.Error(t, w.Start(context.Background()))
	})

	t.Run("empty directory path", func(t *testing.T) {
		w := watcher.New("", handler)
		gt.Error(t, w.Start(context.Background()))
	})
}

func eventually(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
