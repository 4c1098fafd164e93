// Package steplog writes the pipeline's progress lines. Every line goes to
// the local writer; when a Mirror is configured the same line is also
// stored as the newest version of a log object in remote storage.
package steplog

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"example.com/sttpipeline/internal/storage"
)

type Role string

const (
	Receiver Role = "RECEIVER"
	Worker   Role = "WORKER"
)

// JST is the fixed zone used for all timestamps.
var JST = time.FixedZone("JST", 9*60*60)

const (
	timeLayout    = "2006-01-02 15:04:05"
	mirrorTimeout = 30 * time.Second
)

// Mirror names the remote object that receives a copy of every line.
type Mirror struct {
	Store    storage.Store
	FolderID string
	Name     string
}

type Logger struct {
	out    io.Writer
	mirror *Mirror
	now    func() time.Time

	outMu sync.Mutex
	// mirrorMu keeps remote versions in line order.
	mirrorMu sync.Mutex
}

// New returns a logger writing to out. A nil mirror disables remote
// mirroring.
func New(out io.Writer, mirror *Mirror) *Logger {
	return &Logger{out: out, mirror: mirror, now: time.Now}
}

// Format renders a log line, including the trailing newline.
func Format(t time.Time, role Role, step, target string) string {
	return fmt.Sprintf("[%s] [%s] %s：%s\n", t.In(JST).Format(timeLayout), role, step, target)
}

// Log writes one line. It never fails: write and mirror errors are dropped
// so that logging cannot interrupt the caller.
func (l *Logger) Log(role Role, step, target string) {
	line := Format(l.now(), role, step, target)

	l.outMu.Lock()
	_, _ = io.WriteString(l.out, line)
	l.outMu.Unlock()

	if l.mirror != nil {
		l.mirrorMu.Lock()
		defer l.mirrorMu.Unlock()
		l.upload(line)
	}
}

func (l *Logger) upload(line string) {
	defer func() {
		_ = recover()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	_, _ = storage.Put(ctx, l.mirror.Store, l.mirror.FolderID, l.mirror.Name, []byte(line))
}
