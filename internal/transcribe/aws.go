package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/aws/aws-sdk-go/service/transcribeservice/transcribeserviceiface"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FetchFunc downloads the transcript document at url.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// AWSTranscriber runs jobs on Amazon Transcribe. Audio is staged in S3
// because the service only reads media from a bucket; the staging prefix
// should carry a lifecycle rule that plays the part of the results TTL.
type AWSTranscriber struct {
	svc      transcribeserviceiface.TranscribeServiceAPI
	uploader s3manageriface.UploaderAPI
	bucket   string
	staging  string
	fetch    FetchFunc
}

func NewAWSTranscriber(svc transcribeserviceiface.TranscribeServiceAPI, uploader s3manageriface.UploaderAPI, bucket, stagingFolder string, fetch FetchFunc) *AWSTranscriber {
	return &AWSTranscriber{
		svc:      svc,
		uploader: uploader,
		bucket:   bucket,
		staging:  strings.TrimSuffix(stagingFolder, "/"),
		fetch:    fetch,
	}
}

func mediaFormat(contentType string) string {
	if contentType == ContentTypeWAV {
		return transcribeservice.MediaFormatWav
	}
	return transcribeservice.MediaFormatMp3
}

func (a *AWSTranscriber) Submit(ctx context.Context, sub Submission) (string, error) {
	jobName := uuid.NewString()
	format := mediaFormat(sub.ContentType)
	key := jobName + "." + format
	if a.staging != "" {
		key = a.staging + "/" + key
	}

	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(sub.Audio),
		ContentType: aws.String(sub.ContentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "stage audio s3://%s/%s", a.bucket, key)
	}

	_, err = a.svc.StartTranscriptionJobWithContext(ctx, &transcribeservice.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		LanguageCode:         aws.String(sub.Model),
		MediaFormat:          aws.String(format),
		Media: &transcribeservice.Media{
			MediaFileUri: aws.String("s3://" + a.bucket + "/" + key),
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "start transcription job %s", jobName)
	}
	return jobName, nil
}

// transcriptDocument is the subset of the Amazon Transcribe output JSON
// that carries text.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (a *AWSTranscriber) Check(ctx context.Context, jobID string) (*Job, error) {
	out, err := a.svc.GetTranscriptionJobWithContext(ctx, &transcribeservice.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobID),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get transcription job %s", jobID)
	}
	tj := out.TranscriptionJob
	if tj == nil {
		return nil, errors.Errorf("get transcription job %s: empty response", jobID)
	}

	job := &Job{ID: jobID}
	switch aws.StringValue(tj.TranscriptionJobStatus) {
	case transcribeservice.TranscriptionJobStatusCompleted:
		job.Status = StatusCompleted
	case transcribeservice.TranscriptionJobStatusFailed:
		job.Status = StatusFailed
		return job, nil
	default:
		job.Status = StatusRunning
		return job, nil
	}

	if tj.Transcript == nil || tj.Transcript.TranscriptFileUri == nil {
		return job, nil
	}
	body, err := a.fetch(ctx, *tj.Transcript.TranscriptFileUri)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch transcript for %s", jobID)
	}
	var doc transcriptDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode transcript for %s", jobID)
	}
	var group ResultGroup
	for _, t := range doc.Results.Transcripts {
		group.Results = append(group.Results, Result{Alternatives: []Alternative{{Transcript: t.Transcript}}})
	}
	if len(group.Results) > 0 {
		job.Results = []ResultGroup{group}
	}
	return job, nil
}
