package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"

	"example.com/sttpipeline/internal/app"
	"example.com/sttpipeline/internal/config"
	"example.com/sttpipeline/internal/dispatch"
	"example.com/sttpipeline/internal/types"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

type HandleFunc func(ctx context.Context, ev types.UploadEvent) dispatch.Result

type LambdaContext struct {
	inbox  string
	handle HandleFunc
}

// UploadEvent converts one S3 record into a webhook-style upload event.
// Records that are not object creations under the inbox folder yield false.
func (lc LambdaContext) UploadEvent(record events.S3EventRecord) (types.UploadEvent, bool) {
	if !strings.HasPrefix(record.EventName, "ObjectCreated:") {
		return types.UploadEvent{}, false
	}
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		log.Printf("skip key %q: %v", record.S3.Object.Key, err)
		return types.UploadEvent{}, false
	}
	if !strings.HasPrefix(key, lc.inbox) || strings.HasSuffix(key, "/") {
		return types.UploadEvent{}, false
	}
	return types.UploadEvent{
		Trigger: types.TriggerFileUploaded,
		Source:  types.UploadSource{ID: key, Name: path.Base(key)},
	}, true
}

// HandleRequest dispatches every eligible record once. Launch failures are
// already in the step log; the invocation still succeeds so the event
// source never replays records that were accepted.
func (lc LambdaContext) HandleRequest(ctx context.Context, s3Event events.S3Event) error {
	for _, record := range s3Event.Records {
		ev, ok := lc.UploadEvent(record)
		if !ok {
			continue
		}
		res := lc.handle(ctx, ev)
		if res.StatusCode >= http.StatusInternalServerError {
			log.Printf("launch failed for %s: %d", ev.Source.ID, res.StatusCode)
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	lambdaContext := LambdaContext{
		inbox:  cfg.InboxFolder,
		handle: a.Dispatcher().HandleUploadEvent,
	}
	lambda.Start(lambdaContext.HandleRequest)
}
