package transcribe

import (
	"context"
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Ended reports whether the job stopped without producing a transcript.
func (s Status) Ended() bool {
	return s == StatusFailed || s == StatusCancelled
}

type Alternative struct {
	Transcript string
}

type Result struct {
	Alternatives []Alternative
}

type ResultGroup struct {
	Results []Result
}

// Job is a snapshot of a transcription job. Results are only set once the
// status is completed.
type Job struct {
	ID      string
	Status  Status
	Results []ResultGroup
}

// Transcript joins the first alternative of every result, in order.
func (j *Job) Transcript() string {
	return Extract(j.Results)
}

func Extract(groups []ResultGroup) string {
	results := lo.FlatMap(groups, func(g ResultGroup, _ int) []Result {
		return g.Results
	})
	var text string
	for _, r := range results {
		if len(r.Alternatives) > 0 {
			text += r.Alternatives[0].Transcript
		}
	}
	return text
}

type Submission struct {
	Audio       []byte
	ContentType string
	Model       string
	// ResultsTTL is how long the backend keeps results after completion.
	ResultsTTL time.Duration
}

// Transcriber is a speech-to-text backend with asynchronous jobs.
type Transcriber interface {
	Submit(ctx context.Context, sub Submission) (string, error)
	Check(ctx context.Context, jobID string) (*Job, error)
}
