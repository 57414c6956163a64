package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vakinola/Studyassist-MVP/internal/models"
	"github.com/vakinola/Studyassist-MVP/internal/store"
)

func newTestUploadHandler(t *testing.T) *UploadHandler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewUploadHandler(store.NewProgressStore(client), nil, t.TempDir())
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

// ─── Upload Handler Tests ───

func TestInitUpload_AllocatesJobID(t *testing.T) {
	h := newTestUploadHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/init_upload", nil)
	rr := httptest.NewRecorder()
	h.InitUpload(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	body := decodeBody(t, rr)
	if body["ok"] != true {
		t.Error("Expected ok=true")
	}
	jobID, _ := body["job_id"].(string)
	if len(jobID) != 32 {
		t.Errorf("Expected 32-char hex job id, got %q", jobID)
	}
}

func TestInitUpload_SeedsUploadingPhase(t *testing.T) {
	h := newTestUploadHandler(t)

	rr := httptest.NewRecorder()
	h.InitUpload(rr, httptest.NewRequest(http.MethodPost, "/init_upload", nil))
	jobID := decodeBody(t, rr)["job_id"].(string)

	// Poll right away, before any bytes arrive.
	r := chi.NewRouter()
	r.Get("/progress/{job_id}", h.Progress)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/progress/"+jobID, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Expected no-store cache header, got %q", cc)
	}

	var report models.ProgressReport
	json.NewDecoder(rr.Body).Decode(&report)
	if report.Phase != models.PhaseUploading || report.Pct != 0 {
		t.Errorf("Expected uploading/0, got %s/%d", report.Phase, report.Pct)
	}
}

func TestProgress_UnknownJobReadsQueued(t *testing.T) {
	h := newTestUploadHandler(t)

	r := chi.NewRouter()
	r.Get("/progress/{job_id}", h.Progress)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/progress/nosuchjob", nil))

	var report models.ProgressReport
	json.NewDecoder(rr.Body).Decode(&report)
	if report.Phase != models.PhaseQueued || report.Pct != 0 {
		t.Errorf("Expected queued/0 for unknown job, got %s/%d", report.Phase, report.Pct)
	}
}

func TestUpload_MissingFilePart(t *testing.T) {
	h := newTestUploadHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "No file part in request." {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	h := newTestUploadHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "image.png")
	fw.Write([]byte("not a document"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Job-Id", "j1")
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "Unsupported file type. Please upload PDF, DOCX, PPTX or TXT." {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

// ─── Quiz Handler Tests ───

func TestGenerateQuiz_RequiresFilename(t *testing.T) {
	h := NewQuizHandler(nil, nil, nil, nil)

	body, _ := json.Marshal(models.GenerateQuizRequest{NumQuestions: 5})
	req := httptest.NewRequest(http.MethodPost, "/generate_quiz", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Generate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Please select a document before generating a quiz." {
		t.Errorf("Unexpected error message: %v", got)
	}
}

func TestAsk_RequiresQuestionAndFilename(t *testing.T) {
	h := NewQuizHandler(nil, nil, nil, nil)

	tests := []struct {
		name    string
		req     models.AskRequest
		message string
	}{
		{"empty question", models.AskRequest{Filename: "doc1.pdf"}, "Question is required."},
		{"whitespace question", models.AskRequest{Question: "   ", Filename: "doc1.pdf"}, "Question is required."},
		{"no filename", models.AskRequest{Question: "What is X?"}, "Please select a document before asking a question."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.req)
			req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			h.Ask(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rr.Code)
			}
			if got := decodeBody(t, rr)["error"]; got != tc.message {
				t.Errorf("Expected %q, got %v", tc.message, got)
			}
		})
	}
}

func TestSaveResult_RejectsIncompletePayloads(t *testing.T) {
	h := NewQuizHandler(nil, nil, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing correct", `{"filename":"doc1.pdf","total":5}`},
		{"missing total", `{"filename":"doc1.pdf","correct":3}`},
		{"missing filename", `{"correct":3,"total":5}`},
		{"zero total", `{"filename":"doc1.pdf","correct":0,"total":0}`},
		{"correct above total", `{"filename":"doc1.pdf","correct":6,"total":5}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/save_result", bytes.NewReader([]byte(tc.body)))
			rr := httptest.NewRecorder()
			h.SaveResult(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

// ─── Docs Handler Tests ───

func TestDeleteDoc_RequiresFilename(t *testing.T) {
	h := NewDocsHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/delete_doc", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Please select a document to delete." {
		t.Errorf("Unexpected error message: %v", got)
	}
}
