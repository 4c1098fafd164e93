// Package app builds the pipeline's collaborators from configuration.
package app

import (
	"os"

	"example.com/sttpipeline/internal/cloud"
	"example.com/sttpipeline/internal/config"
	"example.com/sttpipeline/internal/database"
	"example.com/sttpipeline/internal/dispatch"
	"example.com/sttpipeline/internal/steplog"
	"example.com/sttpipeline/internal/storage"
	"example.com/sttpipeline/internal/transcribe"
	"example.com/sttpipeline/internal/worker"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/pkg/errors"
)

type App struct {
	Config *config.Config
	Store  storage.Store
	Log    *steplog.Logger
	Ledger database.Ledger

	sess *session.Session
}

func New(cfg *config.Config) (*App, error) {
	sess, err := cloud.NewSession(cloud.AWSParams{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
	if err != nil {
		return nil, err
	}
	a := &App{
		Config: cfg,
		Store:  storage.NewS3Store(s3.New(sess), cfg.Bucket),
		Ledger: database.Nop{},
		sess:   sess,
	}
	var mirror *steplog.Mirror
	if cfg.LogMirror {
		mirror = &steplog.Mirror{Store: a.Store, FolderID: cfg.DoneFolder, Name: cfg.LogMirrorKey}
	}
	a.Log = steplog.New(os.Stdout, mirror)
	if cfg.TableName != "" {
		a.Ledger = database.NewDynamoLedger(dynamodb.New(sess), cfg.TableName)
	}
	return a, nil
}

func (a *App) Launcher() dispatch.Launcher {
	cfg := a.Config
	if cfg.DispatchBackend == config.DispatchSQS {
		return dispatch.NewSQSLauncher(sqs.New(a.sess), cfg.QueueURL, cfg.JobName, cfg.Entrypoint)
	}
	return dispatch.NewCodeEngineLauncher(dispatch.CodeEngineConfig{
		APIKey:     cfg.CodeEngineAPIKey,
		BaseURL:    cfg.CodeEngineURL,
		ProjectID:  cfg.ProjectID,
		JobName:    cfg.JobName,
		Entrypoint: cfg.Entrypoint,
	})
}

func (a *App) Dispatcher() *dispatch.Dispatcher {
	return dispatch.New(a.Launcher(), a.Log, a.Ledger)
}

func (a *App) Transcriber() (transcribe.Transcriber, error) {
	cfg := a.Config
	if cfg.TranscribeBackend == config.TranscribeAWS {
		return transcribe.NewAWSTranscriber(
			transcribeservice.New(a.sess),
			s3manager.NewUploader(a.sess),
			cfg.Bucket,
			cfg.StagingFolder,
			cloud.GetBytes,
		), nil
	}
	svc, err := transcribe.NewWatsonService(cfg.STTAPIKey, cfg.STTServiceURL)
	if err != nil {
		return nil, errors.Wrap(err, "watson")
	}
	return transcribe.NewWatsonTranscriber(svc), nil
}

func (a *App) Runner() (*worker.Runner, error) {
	stt, err := a.Transcriber()
	if err != nil {
		return nil, err
	}
	cfg := a.Config
	return worker.New(a.Store, stt, a.Log, a.Ledger, worker.Config{
		TextFolderID: cfg.TextFolder,
		DoneFolderID: cfg.DoneFolder,
		Model:        cfg.STTModel,
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
	}), nil
}
