package main

import (
	"context"
	"encoding/json"
	"log"

	"example.com/sttpipeline/internal/app"
	"example.com/sttpipeline/internal/config"
	"example.com/sttpipeline/internal/dispatch"
	"example.com/sttpipeline/internal/worker"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

type RunFunc func(ctx context.Context, args []string) error

// LambdaContext runs the jobs that the SQS launcher enqueued.
type LambdaContext struct {
	jobName    string
	entrypoint string
	run        RunFunc
}

// HandleRequest runs each message's job in turn. Jobs are never retried,
// so failures stay in the step log and the batch always succeeds.
func (lc LambdaContext) HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, record := range sqsEvent.Records {
		var msg dispatch.RunMessage
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			log.Printf("cannot parse message %s: %v", record.MessageId, err)
			continue
		}
		if msg.JobName != lc.jobName {
			log.Printf("skip message %s for job %q", record.MessageId, msg.JobName)
			continue
		}
		_ = lc.run(ctx, worker.JobArgs(msg.RunArguments, lc.entrypoint))
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
	runner, err := a.Runner()
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	lambdaContext := LambdaContext{
		jobName:    cfg.JobName,
		entrypoint: cfg.Entrypoint,
		run:        runner.Run,
	}
	lambda.Start(lambdaContext.HandleRequest)
}
