// Package worker runs a single transcription job: download the audio,
// transcribe it, store the transcript and move the audio to the done
// folder. Each step either succeeds or ends the job; nothing is retried.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/sttpipeline/internal/database"
	"example.com/sttpipeline/internal/steplog"
	"example.com/sttpipeline/internal/storage"
	"example.com/sttpipeline/internal/transcribe"
	"example.com/sttpipeline/internal/types"
	"github.com/pkg/errors"
)

var (
	ErrMissingArgs = errors.New("worker: file id and file name are required")
	// ErrTranscriptionEnded means the backend failed or cancelled the job.
	ErrTranscriptionEnded = errors.New("worker: transcription ended without a transcript")
	ErrPollLimit          = errors.New("worker: poll limit reached")
)

const Usage = "Usage: worker <file_id> <file_name>"

const (
	DefaultModel        = "ja-JP"
	DefaultPollInterval = 10 * time.Second
	DefaultResultsTTL   = 120 * time.Minute
)

type Config struct {
	TextFolderID string
	DoneFolderID string
	Model        string
	ResultsTTL   time.Duration
	PollInterval time.Duration
	// MaxPolls bounds the number of status checks; 0 means no bound.
	MaxPolls int
}

type Runner struct {
	store  storage.Store
	stt    transcribe.Transcriber
	log    *steplog.Logger
	ledger database.Ledger
	cfg    Config
	wait   func(ctx context.Context, d time.Duration) error
}

func New(store storage.Store, stt transcribe.Transcriber, log *steplog.Logger, ledger database.Ledger, cfg Config) *Runner {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ResultsTTL <= 0 {
		cfg.ResultsTTL = DefaultResultsTTL
	}
	if ledger == nil {
		ledger = database.Nop{}
	}
	return &Runner{store: store, stt: stt, log: log, ledger: ledger, cfg: cfg, wait: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run validates the positional arguments (file id, file name) and processes
// the file.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) < 2 || args[0] == "" || args[1] == "" {
		r.log.Log(steplog.Worker, "!!! 引数不足", Usage)
		return ErrMissingArgs
	}
	return r.Process(ctx, types.JobRequest{FileID: args[0], FileName: args[1]})
}

// JobArgs strips the entrypoint that launchers put in front of the file
// id and name.
func JobArgs(args []string, entrypoint string) []string {
	if len(args) == 3 && args[0] == entrypoint {
		return args[1:]
	}
	return args
}

// Process is the outer boundary of a job. Every failure, panics included,
// is logged here once and returned; the caller only decides the exit path.
func (r *Runner) Process(ctx context.Context, req types.JobRequest) (err error) {
	r.log.Log(steplog.Worker, "1.処理開始", req.FileName)
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
		if err == nil {
			return
		}
		if errors.Cause(err) != ErrTranscriptionEnded {
			r.log.Log(steplog.Worker, "!!! 異常発生", fmt.Sprintf("%s (%v)", req.FileName, err))
		}
		r.status(ctx, req, types.StatusFailed, err.Error())
	}()
	return r.process(ctx, req)
}

func (r *Runner) process(ctx context.Context, req types.JobRequest) error {
	r.status(ctx, req, types.StatusDownloading, "")
	audio, err := r.store.Download(ctx, req.FileID)
	if err != nil {
		return errors.Wrapf(err, "download %s", req.FileID)
	}

	contentType, known := transcribe.ContentType(req.FileName)
	if !known {
		_, ext := transcribe.SplitExt(req.FileName)
		r.log.Log(steplog.Worker, "WARN", fmt.Sprintf("Unknown extension '%s' for %s, defaulting to %s",
			strings.ToLower(ext), req.FileName, contentType))
	}

	r.log.Log(steplog.Worker, "2.ジョブ作成", req.FileName)
	jobID, err := r.stt.Submit(ctx, transcribe.Submission{
		Audio:       audio,
		ContentType: contentType,
		Model:       r.cfg.Model,
		ResultsTTL:  r.cfg.ResultsTTL,
	})
	if err != nil {
		return errors.Wrap(err, "submit transcription")
	}
	r.log.Log(steplog.Worker, "3.ジョブ監視中", jobID)
	r.status(ctx, req, types.StatusTranscribing, jobID)

	job, err := r.poll(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Ended() {
		r.log.Log(steplog.Worker, "!!! エラー終了", fmt.Sprintf("%s (status: %s)", req.FileName, job.Status))
		return errors.Wrapf(ErrTranscriptionEnded, "status: %s", job.Status)
	}

	r.status(ctx, req, types.StatusStoring, jobID)
	textName, err := r.persistTranscript(ctx, req.FileName, job.Transcript())
	if err != nil {
		return err
	}
	r.log.Log(steplog.Worker, "4.テキスト保存", textName)

	if err := r.relocate(ctx, req, audio); err != nil {
		return err
	}

	r.log.Log(steplog.Worker, "6.処理完了", req.FileName)
	r.status(ctx, req, types.StatusCompleted, "")
	return nil
}

// poll checks the job until it reaches a terminal status.
func (r *Runner) poll(ctx context.Context, jobID string) (*transcribe.Job, error) {
	for attempt := 1; ; attempt++ {
		job, err := r.stt.Check(ctx, jobID)
		if err != nil {
			return nil, errors.Wrap(err, "check transcription")
		}
		if job.Status == transcribe.StatusCompleted || job.Status.Ended() {
			return job, nil
		}
		if r.cfg.MaxPolls > 0 && attempt >= r.cfg.MaxPolls {
			return nil, errors.Wrapf(ErrPollLimit, "job %s still %s after %d checks", jobID, job.Status, attempt)
		}
		if err := r.wait(ctx, r.cfg.PollInterval); err != nil {
			return nil, errors.Wrapf(err, "waiting for job %s", jobID)
		}
	}
}

// TextName returns the transcript file name for an audio file name.
func TextName(fileName string) string {
	root, _ := transcribe.SplitExt(fileName)
	return root + ".txt"
}

func (r *Runner) persistTranscript(ctx context.Context, fileName, text string) (string, error) {
	name := TextName(fileName)
	if _, err := storage.Put(ctx, r.store, r.cfg.TextFolderID, name, []byte(text)); err != nil {
		return "", errors.Wrap(err, "save transcript")
	}
	return name, nil
}

// relocate puts the source file in the done folder. When a file with the
// same name is already there, the audio becomes its newest version and the
// source is deleted instead.
func (r *Runner) relocate(ctx context.Context, req types.JobRequest, audio []byte) error {
	existing, err := r.store.Find(ctx, r.cfg.DoneFolderID, req.FileName)
	switch {
	case err == nil:
		if err := r.store.UploadVersion(ctx, existing, req.FileName, audio); err != nil {
			return errors.Wrapf(err, "upload version of %s", req.FileName)
		}
		if err := r.store.Delete(ctx, req.FileID); err != nil {
			r.log.Log(steplog.Worker, "WARN", fmt.Sprintf("Failed to delete original file %s: %v", req.FileID, err))
		}
		r.log.Log(steplog.Worker, "5.ファイル移動(既存にバージョン追加)", req.FileName)
	case errors.Cause(err) == storage.ErrNoObject:
		if err := r.store.Move(ctx, req.FileID, r.cfg.DoneFolderID); err != nil {
			return errors.Wrapf(err, "move %s", req.FileName)
		}
		r.log.Log(steplog.Worker, "5.ファイル移動", req.FileName)
	default:
		return errors.Wrap(err, "look up done folder")
	}
	return nil
}

func (r *Runner) status(ctx context.Context, req types.JobRequest, status, detail string) {
	if err := r.ledger.SetStatus(ctx, req.FileID, status, detail); err != nil {
		r.log.Log(steplog.Worker, "WARN", fmt.Sprintf("ledger: %v", err))
	}
}
