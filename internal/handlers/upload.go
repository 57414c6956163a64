package handlers

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vakinola/Studyassist-MVP/internal/models"
	"github.com/vakinola/Studyassist-MVP/internal/repository"
	"github.com/vakinola/Studyassist-MVP/internal/services"
	"github.com/vakinola/Studyassist-MVP/internal/store"
)

const maxUploadBytes = 64 << 20

type UploadHandler struct {
	progress    *store.ProgressStore
	docRepo     *repository.DocumentRepo
	storagePath string
}

func NewUploadHandler(progress *store.ProgressStore, docRepo *repository.DocumentRepo, storagePath string) *UploadHandler {
	return &UploadHandler{
		progress:    progress,
		docRepo:     docRepo,
		storagePath: storagePath,
	}
}

// InitUpload allocates a job id before any bytes are sent so the client can
// start polling immediately.
func (h *UploadHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	jobID := newJobID()

	if err := h.progress.Init(r.Context(), jobID); err != nil {
		log.Printf("init_upload: failed to seed progress: %v", err)
		writeError(w, http.StatusInternalServerError, "Could not start job.")
		return
	}

	writeJSON(w, http.StatusOK, models.InitUploadResponse{OK: true, JobID: jobID})
}

// Upload accepts the multipart file, registers the document, moves the job to
// queued/40 and hands the rest to the worker pool.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	jobID := r.Header.Get("X-Job-Id")
	if jobID == "" {
		jobID = newJobID()
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No file part in request.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part in request.")
		return
	}
	defer file.Close()

	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." {
		writeError(w, http.StatusBadRequest, "No file selected.")
		return
	}
	if !services.IsSupportedExtension(filename) {
		writeError(w, http.StatusBadRequest, "Unsupported file type. Please upload PDF, DOCX, PPTX or TXT.")
		return
	}

	if err := os.MkdirAll(h.storagePath, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not store the file.")
		return
	}

	storedPath := filepath.Join(h.storagePath, filename)
	dst, err := os.Create(storedPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not store the file.")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(storedPath)
		writeError(w, http.StatusInternalServerError, "Could not store the file.")
		return
	}
	dst.Close()

	doc := &models.Document{Filename: filename, StoredPath: storedPath}
	if err := h.docRepo.Create(ctx, doc); err != nil {
		log.Printf("upload: failed to register document %s: %v", filename, err)
		writeError(w, http.StatusInternalServerError, "Could not register the document.")
		return
	}

	// Transfer complete: the job enters the server-side band.
	h.progress.Set(ctx, jobID, models.ProgressReport{
		Phase:    models.PhaseQueued,
		Pct:      models.UploadPctCeiling,
		Filename: filename,
	})

	task := models.ProcessingTask{
		JobID:      jobID,
		DocumentID: doc.ID.String(),
		Filename:   filename,
		StoredPath: storedPath,
	}
	if err := h.progress.Enqueue(ctx, task); err != nil {
		log.Printf("upload: failed to enqueue job %s: %v", jobID, err)
		h.progress.Fail(ctx, jobID, "Could not queue the document for processing.")
		writeError(w, http.StatusInternalServerError, "Could not queue the document for processing.")
		return
	}

	log.Printf("UPLOAD ACCEPTED job=%s file=%s", jobID, filename)
	writeJSON(w, http.StatusOK, models.UploadResponse{OK: true, JobID: jobID, Filename: filename})
}

// Progress serves the poll endpoint. Unknown jobs read as queued/0.
func (h *UploadHandler) Progress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	report, err := h.progress.Get(r.Context(), jobID)
	if err != nil {
		log.Printf("progress: read failed for job %s: %v", jobID, err)
		writeError(w, http.StatusInternalServerError, "Progress unavailable.")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, report)
}

func newJobID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
