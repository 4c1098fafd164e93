package main

import (
	"context"
	"encoding/json"
	"testing"

	"example.com/sttpipeline/internal/dispatch"
	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

func message(t *testing.T, m dispatch.RunMessage) events.SQSMessage {
	t.Helper()
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return events.SQSMessage{MessageId: "m-" + m.JobName, Body: string(b)}
}

func TestHandleRequestRunsJobs(t *testing.T) {
	var runs [][]string
	lc := LambdaContext{
		jobName:    "stt-worker-job",
		entrypoint: "worker",
		run: func(ctx context.Context, args []string) error {
			runs = append(runs, args)
			return errors.New("job failed")
		},
	}
	err := lc.HandleRequest(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		message(t, dispatch.RunMessage{JobName: "stt-worker-job", RunArguments: []string{"worker", "f1", "a.mp3"}}),
		message(t, dispatch.RunMessage{JobName: "other-job", RunArguments: []string{"worker", "f2", "b.mp3"}}),
		{MessageId: "bad", Body: "{"},
		message(t, dispatch.RunMessage{JobName: "stt-worker-job", RunArguments: []string{"worker", "f3", "c.mp3"}}),
	}})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %q", runs)
	}
	if runs[0][0] != "f1" || runs[0][1] != "a.mp3" || runs[1][0] != "f3" {
		t.Fatalf("runs = %q", runs)
	}
}
