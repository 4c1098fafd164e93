package transcribe

import (
	"bytes"
	"context"
	"io/ioutil"

	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/pkg/errors"
	"github.com/watson-developer-cloud/go-sdk/v3/speechtotextv1"
)

type WatsonJobs interface {
	CreateJobWithContext(ctx context.Context, options *speechtotextv1.CreateJobOptions) (*speechtotextv1.RecognitionJob, *core.DetailedResponse, error)
	CheckJobWithContext(ctx context.Context, options *speechtotextv1.CheckJobOptions) (*speechtotextv1.RecognitionJob, *core.DetailedResponse, error)
}

// WatsonTranscriber uses the asynchronous job API of IBM Watson Speech to Text.
type WatsonTranscriber struct {
	svc WatsonJobs
}

func NewWatsonTranscriber(svc WatsonJobs) *WatsonTranscriber {
	return &WatsonTranscriber{svc: svc}
}

// NewWatsonService authenticates with an IAM API key.
func NewWatsonService(apiKey, serviceURL string) (*speechtotextv1.SpeechToTextV1, error) {
	stt, err := speechtotextv1.NewSpeechToTextV1(&speechtotextv1.SpeechToTextV1Options{
		Authenticator: &core.IamAuthenticator{ApiKey: apiKey},
	})
	if err != nil {
		return nil, errors.Wrap(err, "speech to text client")
	}
	if serviceURL != "" {
		if err := stt.SetServiceURL(serviceURL); err != nil {
			return nil, errors.Wrap(err, "speech to text url")
		}
	}
	return stt, nil
}

func (w *WatsonTranscriber) Submit(ctx context.Context, sub Submission) (string, error) {
	opts := &speechtotextv1.CreateJobOptions{
		Audio:       ioutil.NopCloser(bytes.NewReader(sub.Audio)),
		ContentType: core.StringPtr(sub.ContentType),
		Model:       core.StringPtr(sub.Model),
	}
	if sub.ResultsTTL > 0 {
		opts.ResultsTTL = core.Int64Ptr(int64(sub.ResultsTTL.Minutes()))
	}
	job, _, err := w.svc.CreateJobWithContext(ctx, opts)
	if err != nil {
		return "", errors.Wrap(err, "create recognition job")
	}
	if job == nil || job.ID == nil {
		return "", errors.New("create recognition job: no job id")
	}
	return *job.ID, nil
}

func (w *WatsonTranscriber) Check(ctx context.Context, jobID string) (*Job, error) {
	rj, _, err := w.svc.CheckJobWithContext(ctx, &speechtotextv1.CheckJobOptions{ID: core.StringPtr(jobID)})
	if err != nil {
		return nil, errors.Wrapf(err, "check recognition job %s", jobID)
	}
	job := &Job{ID: jobID, Status: watsonStatus(core.StringNilMapper(rj.Status))}
	if job.Status != StatusCompleted {
		return job, nil
	}
	for _, group := range rj.Results {
		var g ResultGroup
		for _, res := range group.Results {
			var r Result
			for _, alt := range res.Alternatives {
				r.Alternatives = append(r.Alternatives, Alternative{Transcript: core.StringNilMapper(alt.Transcript)})
			}
			g.Results = append(g.Results, r)
		}
		job.Results = append(job.Results, g)
	}
	return job, nil
}

func watsonStatus(s string) Status {
	switch s {
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	case "cancelled":
		return StatusCancelled
	}
	return StatusRunning
}
