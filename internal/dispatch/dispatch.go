// Package dispatch turns storage upload notifications into worker job
// launches. A launch is a one-way request to an external execution service:
// the dispatcher's responsibility ends once the service accepts it, and it
// never tracks the run afterwards.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"example.com/sttpipeline/internal/database"
	"example.com/sttpipeline/internal/steplog"
	"example.com/sttpipeline/internal/types"
	"github.com/pkg/errors"
)

// ErrNoRunID is returned when the execution service accepted a launch
// request but did not report a run identifier.
var ErrNoRunID = errors.New("dispatch: launch returned no run id")

// Launcher starts one worker run for a request.
type Launcher interface {
	Launch(ctx context.Context, req types.JobRequest) (types.JobRun, error)
}

const (
	StatusIgnored  = "ignored"
	StatusAccepted = "accepted"
	StatusError    = "error"
)

type Response struct {
	Status   string `json:"status"`
	JobRunID string `json:"job_run_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Result is the HTTP status and body to return to the webhook caller.
type Result struct {
	StatusCode int
	Body       Response
}

type Dispatcher struct {
	launcher Launcher
	log      *steplog.Logger
	ledger   database.Ledger
}

func New(launcher Launcher, log *steplog.Logger, ledger database.Ledger) *Dispatcher {
	if ledger == nil {
		ledger = database.Nop{}
	}
	return &Dispatcher{launcher: launcher, log: log, ledger: ledger}
}

// ParseUploadEvent decodes a webhook body. Each field is decoded on its
// own, so a field of the wrong type is left empty without losing the rest.
// Malformed bodies yield an empty event, which is then ignored rather than
// rejected.
func ParseUploadEvent(body []byte) types.UploadEvent {
	var raw struct {
		Trigger json.RawMessage `json:"trigger"`
		Source  json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return types.UploadEvent{}
	}
	var src struct {
		ID   json.RawMessage `json:"id"`
		Name json.RawMessage `json:"name"`
	}
	_ = json.Unmarshal(raw.Source, &src)
	return types.UploadEvent{
		Trigger: jsonString(raw.Trigger),
		Source:  types.UploadSource{ID: jsonString(src.ID), Name: jsonString(src.Name)},
	}
}

func jsonString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Accept reports whether ev should start a job.
func Accept(ev types.UploadEvent) (types.JobRequest, bool) {
	if ev.Trigger != types.TriggerFileUploaded {
		return types.JobRequest{}, false
	}
	if ev.Source.ID == "" || ev.Source.Name == "" {
		return types.JobRequest{}, false
	}
	if !strings.HasSuffix(strings.ToLower(ev.Source.Name), ".mp3") {
		return types.JobRequest{}, false
	}
	return types.JobRequest{FileID: ev.Source.ID, FileName: ev.Source.Name}, true
}

func (d *Dispatcher) HandleUploadEvent(ctx context.Context, ev types.UploadEvent) Result {
	target := ev.Source.Name
	if target == "" {
		target = "Unknown"
	}
	d.log.Log(steplog.Receiver, "1.Webhook受信", target)

	req, ok := Accept(ev)
	if !ok {
		return Result{StatusCode: http.StatusOK, Body: Response{Status: StatusIgnored}}
	}

	d.log.Log(steplog.Receiver, "2.WORKER起動依頼", req.FileName)
	run, err := d.launcher.Launch(ctx, req)
	if err != nil {
		d.log.Log(steplog.Receiver, "!!! Job起動失敗", err.Error())
		return Result{
			StatusCode: http.StatusInternalServerError,
			Body:       Response{Status: StatusError, Message: "Failed to start job"},
		}
	}
	d.log.Log(steplog.Receiver, "3.Job受付完了", fmt.Sprintf("RunID: %s...", shortID(run.ID)))

	err = d.ledger.Create(ctx, types.JobRecord{
		FileID:    req.FileID,
		FileName:  req.FileName,
		RunID:     run.ID,
		JobStatus: types.StatusAccepted,
	})
	if err != nil {
		d.log.Log(steplog.Receiver, "WARN", fmt.Sprintf("ledger: %v", err))
	}

	return Result{
		StatusCode: http.StatusAccepted,
		Body:       Response{Status: StatusAccepted, JobRunID: run.ID},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
