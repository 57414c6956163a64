package models

// Job phases, in lifecycle order. Completed and error are terminal.
const (
	PhaseQueued      = "queued"
	PhaseUploading   = "uploading"
	PhaseProcessing  = "processing"
	PhaseSummarizing = "summarizing"
	PhaseCompleted   = "completed"
	PhaseError       = "error"
)

// UploadPctCeiling is the percentage the client-side transfer accounts for.
// Everything above it is server-side processing.
const UploadPctCeiling = 40

// Job is one upload-and-process run tracked by the server.
type Job struct {
	ID       string `json:"job_id"`
	Phase    string `json:"phase"`
	Pct      int    `json:"pct"`
	Error    string `json:"error,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ProgressReport is the wire shape of GET /progress/{job_id}.
type ProgressReport struct {
	Phase    string `json:"phase"`
	Pct      int    `json:"pct"`
	Error    string `json:"error,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// TerminalPhase reports whether a phase admits no further transitions.
func TerminalPhase(phase string) bool {
	return phase == PhaseCompleted || phase == PhaseError
}

// InitUploadResponse is the body of POST /init_upload.
type InitUploadResponse struct {
	OK    bool   `json:"ok"`
	JobID string `json:"job_id"`
}

// UploadResponse is the body of POST /upload for XHR clients.
type UploadResponse struct {
	OK       bool   `json:"ok"`
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
}

// ProcessingTask is what the upload handler enqueues and the worker pool pops.
type ProcessingTask struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	StoredPath string `json:"stored_path"`
}
