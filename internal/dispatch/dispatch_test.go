package dispatch

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"example.com/sttpipeline/internal/database"
	"example.com/sttpipeline/internal/steplog"
	"example.com/sttpipeline/internal/types"
	"github.com/pkg/errors"
)

type fakeLauncher struct {
	calls []types.JobRequest
	run   types.JobRun
	err   error
}

func (f *fakeLauncher) Launch(ctx context.Context, req types.JobRequest) (types.JobRun, error) {
	f.calls = append(f.calls, req)
	return f.run, f.err
}

type failingLedger struct {
	database.Nop
}

func (failingLedger) Create(context.Context, types.JobRecord) error {
	return errors.New("table missing")
}

func event(trigger, id, name string) types.UploadEvent {
	return types.UploadEvent{Trigger: trigger, Source: types.UploadSource{ID: id, Name: name}}
}

func TestIgnoredEventsNeverLaunch(t *testing.T) {
	cases := []types.UploadEvent{
		event("FILE.DELETED", "1", "a.mp3"),
		event("", "1", "a.mp3"),
		event(types.TriggerFileUploaded, "", "a.mp3"),
		event(types.TriggerFileUploaded, "1", ""),
		event(types.TriggerFileUploaded, "1", "a.wav"),
		event(types.TriggerFileUploaded, "1", "a.mp3.txt"),
		{},
	}
	for _, ev := range cases {
		l := &fakeLauncher{}
		d := New(l, steplog.New(&bytes.Buffer{}, nil), nil)
		res := d.HandleUploadEvent(context.Background(), ev)
		if res.StatusCode != http.StatusOK || res.Body.Status != StatusIgnored {
			t.Errorf("%+v: result = %+v, want 200 ignored", ev, res)
		}
		if len(l.calls) != 0 {
			t.Errorf("%+v: launcher called %d times", ev, len(l.calls))
		}
	}
}

func TestAcceptedEventLaunchesOnce(t *testing.T) {
	var out bytes.Buffer
	l := &fakeLauncher{run: types.JobRun{ID: "abcdef0123456789"}}
	d := New(l, steplog.New(&out, nil), nil)

	res := d.HandleUploadEvent(context.Background(), event(types.TriggerFileUploaded, "123", "meeting.MP3"))
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", res.StatusCode)
	}
	if res.Body.Status != StatusAccepted || res.Body.JobRunID != "abcdef0123456789" {
		t.Fatalf("body = %+v", res.Body)
	}
	if len(l.calls) != 1 || l.calls[0] != (types.JobRequest{FileID: "123", FileName: "meeting.MP3"}) {
		t.Fatalf("calls = %+v", l.calls)
	}
	if !strings.Contains(out.String(), "3.Job受付完了：RunID: abcdef01...") {
		t.Fatalf("log = %q", out.String())
	}
}

func TestLaunchFailureIs500(t *testing.T) {
	var out bytes.Buffer
	l := &fakeLauncher{err: errors.New("iam: unauthorized")}
	d := New(l, steplog.New(&out, nil), nil)

	res := d.HandleUploadEvent(context.Background(), event(types.TriggerFileUploaded, "1", "a.mp3"))
	if res.StatusCode != http.StatusInternalServerError || res.Body.Status != StatusError || res.Body.Message == "" {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(out.String(), "!!! Job起動失敗：iam: unauthorized") {
		t.Fatalf("log = %q", out.String())
	}
}

func TestLedgerFailureDoesNotChangeResult(t *testing.T) {
	var out bytes.Buffer
	d := New(&fakeLauncher{run: types.JobRun{ID: "r"}}, steplog.New(&out, nil), failingLedger{})
	res := d.HandleUploadEvent(context.Background(), event(types.TriggerFileUploaded, "1", "a.mp3"))
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if !strings.Contains(out.String(), "WARN：ledger: table missing") {
		t.Fatalf("log = %q", out.String())
	}
}

func TestUnknownNameIsLogged(t *testing.T) {
	var out bytes.Buffer
	d := New(&fakeLauncher{}, steplog.New(&out, nil), nil)
	d.HandleUploadEvent(context.Background(), types.UploadEvent{})
	if !strings.Contains(out.String(), "1.Webhook受信：Unknown") {
		t.Fatalf("log = %q", out.String())
	}
}

func TestParseUploadEvent(t *testing.T) {
	ev := ParseUploadEvent([]byte(`{"trigger":"FILE.UPLOADED","source":{"id":"123","name":"meeting.mp3"}}`))
	if ev != event(types.TriggerFileUploaded, "123", "meeting.mp3") {
		t.Fatalf("event = %+v", ev)
	}
	for _, body := range []string{"", "not json", `{"source":"x"}`} {
		if ev := ParseUploadEvent([]byte(body)); ev != (types.UploadEvent{}) {
			t.Errorf("ParseUploadEvent(%q) = %+v, want empty", body, ev)
		}
	}
}

func TestParseUploadEventKeepsWellTypedFields(t *testing.T) {
	ev := ParseUploadEvent([]byte(`{"trigger":1,"source":{"id":42,"name":"a.mp3"}}`))
	if ev != event("", "", "a.mp3") {
		t.Fatalf("event = %+v", ev)
	}

	var out bytes.Buffer
	l := &fakeLauncher{}
	res := New(l, steplog.New(&out, nil), nil).HandleUploadEvent(context.Background(), ev)
	if res.StatusCode != http.StatusOK || res.Body.Status != StatusIgnored || len(l.calls) != 0 {
		t.Fatalf("result = %+v, calls = %d", res, len(l.calls))
	}
	if !strings.Contains(out.String(), "1.Webhook受信：a.mp3") {
		t.Fatalf("log = %q", out.String())
	}
}
