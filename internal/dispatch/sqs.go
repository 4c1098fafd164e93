package dispatch

import (
	"context"
	"encoding/json"

	"example.com/sttpipeline/internal/types"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/pkg/errors"
)

// RunMessage is the body sent to the worker queue.
type RunMessage struct {
	JobName      string   `json:"job_name"`
	RunArguments []string `json:"run_arguments"`
}

// SQSLauncher hands runs to whatever consumes the queue. The message id
// serves as the run id.
type SQSLauncher struct {
	svc        sqsiface.SQSAPI
	queueURL   string
	jobName    string
	entrypoint string
}

func NewSQSLauncher(svc sqsiface.SQSAPI, queueURL, jobName, entrypoint string) *SQSLauncher {
	return &SQSLauncher{svc: svc, queueURL: queueURL, jobName: jobName, entrypoint: entrypoint}
}

func (l *SQSLauncher) Launch(ctx context.Context, req types.JobRequest) (types.JobRun, error) {
	b, err := json.Marshal(RunMessage{
		JobName:      l.jobName,
		RunArguments: []string{l.entrypoint, req.FileID, req.FileName},
	})
	if err != nil {
		return types.JobRun{}, errors.Wrap(err, "encode run message")
	}
	out, err := l.svc.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		MessageBody: aws.String(string(b)),
		QueueUrl:    aws.String(l.queueURL),
	})
	if err != nil {
		return types.JobRun{}, errors.Wrapf(err, "send run message for %s", req.FileName)
	}
	if aws.StringValue(out.MessageId) == "" {
		return types.JobRun{}, ErrNoRunID
	}
	return types.JobRun{ID: *out.MessageId, Status: types.RunAccepted}, nil
}
