package steplog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/sttpipeline/internal/storage"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
}

func TestFormatUsesJST(t *testing.T) {
	got := Format(fixedClock(), Worker, "6.処理完了", "meeting.mp3")
	want := "[2024-03-02 00:04:05] [WORKER] 6.処理完了：meeting.mp3\n"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestLogWithoutMirror(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, nil)
	l.now = fixedClock

	l.Log(Receiver, "1.Webhook受信", "Unknown")
	if got, want := buf.String(), "[2024-03-02 00:04:05] [RECEIVER] 1.Webhook受信：Unknown\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestLogMirrorCreatesThenVersions(t *testing.T) {
	var buf bytes.Buffer
	store := storage.NewMemoryStore()
	l := New(&buf, &Mirror{Store: store, FolderID: "done", Name: "stt-pipeline.log"})
	l.now = fixedClock

	l.Log(Worker, "1.処理開始", "a.mp3")
	l.Log(Worker, "6.処理完了", "a.mp3")

	id, err := store.Find(context.Background(), "done", "stt-pipeline.log")
	if err != nil {
		t.Fatalf("find log object: %v", err)
	}
	f, _ := store.File(id)
	if len(f.Versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(f.Versions))
	}
	if got := string(f.Versions[1]); got != "[2024-03-02 00:04:05] [WORKER] 6.処理完了：a.mp3\n" {
		t.Fatalf("last version = %q", got)
	}
}

type brokenStore struct {
	storage.Store
}

func (brokenStore) Find(ctx context.Context, folderID, name string) (string, error) {
	return "", errors.New("network down")
}

type panickyStore struct {
	storage.Store
}

func (panickyStore) Find(ctx context.Context, folderID, name string) (string, error) {
	panic("boom")
}

func TestLogMirrorFailureIsSwallowed(t *testing.T) {
	for _, s := range []storage.Store{brokenStore{}, panickyStore{}} {
		var buf bytes.Buffer
		l := New(&buf, &Mirror{Store: s, FolderID: "done", Name: "x.log"})
		l.Log(Worker, "WARN", "still written")
		if !bytes.Contains(buf.Bytes(), []byte("still written")) {
			t.Fatalf("stdout line missing: %q", buf.String())
		}
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// slowStore blocks every Find until release is closed.
type slowStore struct {
	storage.Store
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Find(ctx context.Context, folderID, name string) (string, error) {
	s.entered <- struct{}{}
	<-s.release
	return "", errors.New("unavailable")
}

func TestSlowMirrorDoesNotBlockOutput(t *testing.T) {
	var out lockedBuffer
	store := &slowStore{entered: make(chan struct{}, 2), release: make(chan struct{})}
	l := New(&out, &Mirror{Store: store, FolderID: "done", Name: "x.log"})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.Log(Receiver, "1.Webhook受信", "first.mp3")
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		l.Log(Receiver, "1.Webhook受信", "second.mp3")
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "second.mp3") {
		if time.Now().After(deadline) {
			close(store.release)
			t.Fatalf("second line not written while mirror was busy: %q", out.String())
		}
		time.Sleep(time.Millisecond)
	}
	close(store.release)
	wg.Wait()
}
