package types

// TriggerFileUploaded is the only webhook trigger that starts a job.
const TriggerFileUploaded = "FILE.UPLOADED"

// Ledger statuses.
const (
	StatusAccepted     = "accepted"
	StatusDownloading  = "downloading"
	StatusTranscribing = "transcribing"
	StatusStoring      = "storing"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
)

type UploadSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UploadEvent is the webhook payload sent by the storage backend. Any field
// may be missing.
type UploadEvent struct {
	Trigger string       `json:"trigger"`
	Source  UploadSource `json:"source"`
}

// JobRequest identifies the file a worker run processes.
type JobRequest struct {
	FileID   string
	FileName string
}

// RunAccepted is the status of every JobRun a launcher returns; a launch
// that fails to start is an error instead.
const RunAccepted = "accepted"

// JobRun is the handle returned by a launcher. It is never polled.
type JobRun struct {
	ID     string
	Status string
}

// JobRecord tracks a job's progress in the ledger table.
type JobRecord struct {
	FileID    string `json:"file_id"`
	FileName  string `json:"file_name"`
	RunID     string `json:"run_id,omitempty"`
	JobStatus string `json:"job_status"`
	Detail    string `json:"detail,omitempty"`
	UpdatedAt string `json:"updated_at"`
}
