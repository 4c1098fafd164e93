package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DispatchCodeEngine = "codeengine"
	DispatchSQS        = "sqs"

	TranscribeWatson = "watson"
	TranscribeAWS    = "aws"
)

type Config struct {
	Port int

	AWSRegion   string
	AWSEndpoint string

	Bucket       string
	InboxFolder  string
	DoneFolder   string
	TextFolder   string
	LogMirror    bool
	LogMirrorKey string

	DispatchBackend  string
	CodeEngineAPIKey string
	CodeEngineURL    string
	ProjectID        string
	JobName          string
	Entrypoint       string
	QueueURL         string

	TranscribeBackend string
	STTAPIKey         string
	STTServiceURL     string
	STTModel          string
	StagingFolder     string
	PollInterval      time.Duration
	MaxPolls          int

	TableName string
}

// Load reads the configuration from the environment, after merging an
// optional .env file from the working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	c := &Config{
		AWSRegion:         get("AWS_REGION", "us-east-1"),
		AWSEndpoint:       getenv("AWS_ENDPOINT"),
		Bucket:            getenv("STORAGE_BUCKET"),
		InboxFolder:       get("STORAGE_INBOX_FOLDER", "inbox/"),
		DoneFolder:        get("STORAGE_DONE_FOLDER", "done/"),
		TextFolder:        get("STORAGE_TEXT_FOLDER", "text/"),
		LogMirrorKey:      get("LOG_MIRROR_NAME", "stt-pipeline.log"),
		DispatchBackend:   strings.ToLower(get("DISPATCH_BACKEND", DispatchCodeEngine)),
		CodeEngineAPIKey:  getenv("IBM_CLOUD_API_KEY"),
		CodeEngineURL:     getenv("CE_API_BASE_URL"),
		ProjectID:         getenv("CE_PROJECT_ID"),
		JobName:           get("CE_JOB_NAME", "stt-worker-job"),
		Entrypoint:        get("CE_WORKER_ENTRYPOINT", "worker"),
		QueueURL:          getenv("DISPATCH_QUEUE_URL"),
		TranscribeBackend: strings.ToLower(get("TRANSCRIBE_BACKEND", TranscribeWatson)),
		STTAPIKey:         getenv("STT_API_KEY"),
		STTServiceURL:     getenv("STT_SERVICE_URL"),
		STTModel:          get("STT_MODEL", "ja-JP"),
		StagingFolder:     get("STT_STAGING_FOLDER", "staging/"),
		TableName:         getenv("TABLE_NAME"),
	}

	var err error
	if c.Port, err = strconv.Atoi(get("PORT", "8080")); err != nil {
		return nil, errors.Wrap(err, "PORT")
	}
	if c.LogMirror, err = strconv.ParseBool(get("LOG_MIRROR_ENABLED", "false")); err != nil {
		return nil, errors.Wrap(err, "LOG_MIRROR_ENABLED")
	}
	if c.PollInterval, err = time.ParseDuration(get("POLL_INTERVAL", "10s")); err != nil {
		return nil, errors.Wrap(err, "POLL_INTERVAL")
	}
	if c.MaxPolls, err = strconv.Atoi(get("POLL_MAX_ATTEMPTS", "0")); err != nil {
		return nil, errors.Wrap(err, "POLL_MAX_ATTEMPTS")
	}

	switch c.DispatchBackend {
	case DispatchCodeEngine, DispatchSQS:
	default:
		return nil, errors.Errorf("DISPATCH_BACKEND: unknown backend %q", c.DispatchBackend)
	}
	switch c.TranscribeBackend {
	case TranscribeWatson, TranscribeAWS:
	default:
		return nil, errors.Errorf("TRANSCRIBE_BACKEND: unknown backend %q", c.TranscribeBackend)
	}
	return c, nil
}
