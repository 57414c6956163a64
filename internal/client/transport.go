package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

// Transport is the network boundary of the core: everything that suspends
// goes through here, nothing else does.
type Transport interface {
	// CreateJob allocates a job id before any bytes are sent.
	CreateJob(ctx context.Context) (string, error)
	// UploadFile streams the file, reporting the transferred fraction
	// (0..1) as bytes go out.
	UploadFile(ctx context.Context, jobID, path string, onProgress func(fraction float64)) error
	// PollProgress issues one status request.
	PollProgress(ctx context.Context, jobID string) (models.ProgressReport, error)

	GenerateQuiz(ctx context.Context, filename string, count int) ([]models.Question, error)
	Ask(ctx context.Context, filename, question string) (string, error)
	SaveResult(ctx context.Context, filename string, correct, total, percent int) error
	ListResults(ctx context.Context) ([]models.QuizResult, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	Summary(ctx context.Context, filename string) (string, error)
	DeleteDocument(ctx context.Context, filename string) (string, error)
}

// HTTPTransport talks to the studyassist server.
type HTTPTransport struct {
	baseURL string
	http    *http.Client
}

func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		// No overall timeout: uploads and LLM calls are legitimately slow.
		// Cancellation comes from the request context.
		http: &http.Client{},
	}
}

// apiEnvelope is the shared {ok, error} wrapper around every JSON body.
type apiEnvelope struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

func (e apiEnvelope) failed() bool {
	return e.OK != nil && !*e.OK
}

func (t *HTTPTransport) CreateJob(ctx context.Context) (string, error) {
	var resp models.InitUploadResponse
	if err := t.postJSON(ctx, "/init_upload", nil, &resp); err != nil {
		return "", &JobCreationError{Message: err.Error()}
	}
	if resp.JobID == "" {
		return "", &JobCreationError{Message: "server did not return a job id"}
	}
	return resp.JobID, nil
}

// progressReader counts bytes as the request body drains.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress func(fraction float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.onProgress != nil && p.total > 0 {
		p.sent += int64(n)
		fraction := float64(p.sent) / float64(p.total)
		if fraction > 1 {
			fraction = 1
		}
		p.onProgress(fraction)
	}
	return n, err
}

func (t *HTTPTransport) UploadFile(ctx context.Context, jobID, path string, onProgress func(float64)) error {
	file, err := os.Open(path)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	if _, err := io.Copy(fw, file); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	mw.Close()

	reader := &progressReader{
		r:          bytes.NewReader(body.Bytes()),
		total:      int64(body.Len()),
		onProgress: onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/upload", reader)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Job-Id", jobID)
	req.ContentLength = int64(body.Len())

	resp, err := t.http.Do(req)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	var env apiEnvelope
	json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode != http.StatusOK || env.failed() {
		return &TransportError{Op: "upload", Err: responseError(resp.StatusCode, env)}
	}
	return nil
}

func (t *HTTPTransport) PollProgress(ctx context.Context, jobID string) (models.ProgressReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/progress/"+jobID, nil)
	if err != nil {
		return models.ProgressReport{}, &TransportError{Op: "poll", Err: err}
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := t.http.Do(req)
	if err != nil {
		return models.ProgressReport{}, &TransportError{Op: "poll", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ProgressReport{}, &TransportError{Op: "poll", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var report models.ProgressReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return models.ProgressReport{}, &TransportError{Op: "poll", Err: err}
	}
	return report, nil
}

func (t *HTTPTransport) GenerateQuiz(ctx context.Context, filename string, count int) ([]models.Question, error) {
	var resp struct {
		apiEnvelope
		Quiz []models.Question `json:"quiz"`
	}
	req := models.GenerateQuizRequest{NumQuestions: count, Filename: filename}
	if err := t.postJSON(ctx, "/generate_quiz", req, &resp); err != nil {
		return nil, err
	}
	return resp.Quiz, nil
}

func (t *HTTPTransport) Ask(ctx context.Context, filename, question string) (string, error) {
	var resp struct {
		apiEnvelope
		Answer string `json:"answer"`
	}
	req := models.AskRequest{Question: question, Filename: filename}
	if err := t.postJSON(ctx, "/ask", req, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func (t *HTTPTransport) SaveResult(ctx context.Context, filename string, correct, total, percent int) error {
	req := models.SaveResultRequest{
		Filename: filename,
		Correct:  correct,
		Total:    total,
		Percent:  percent,
	}
	var resp apiEnvelope
	return t.postJSON(ctx, "/save_result", req, &resp)
}

func (t *HTTPTransport) ListResults(ctx context.Context) ([]models.QuizResult, error) {
	var resp struct {
		apiEnvelope
		Results []models.QuizResult `json:"results"`
	}
	if err := t.getJSON(ctx, "/results", &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (t *HTTPTransport) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var resp struct {
		apiEnvelope
		Documents []models.Document `json:"documents"`
	}
	if err := t.getJSON(ctx, "/documents", &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (t *HTTPTransport) Summary(ctx context.Context, filename string) (string, error) {
	var resp struct {
		apiEnvelope
		Summary string `json:"summary"`
	}
	if err := t.getJSON(ctx, "/summary?filename="+url.QueryEscape(filename), &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (t *HTTPTransport) DeleteDocument(ctx context.Context, filename string) (string, error) {
	var resp struct {
		apiEnvelope
		Message string `json:"message"`
	}
	if err := t.postJSON(ctx, "/delete_doc", models.DeleteDocRequest{Filename: filename}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (t *HTTPTransport) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &TransportError{Op: path, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return t.do(req, path, out)
}

func (t *HTTPTransport) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}
	req.Header.Set("Cache-Control", "no-store")
	return t.do(req, path, out)
}

func (t *HTTPTransport) do(req *http.Request, op string, out interface{}) error {
	resp, err := t.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	var env apiEnvelope
	json.Unmarshal(data, &env)
	if resp.StatusCode != http.StatusOK || env.failed() {
		return &TransportError{Op: op, Err: responseError(resp.StatusCode, env)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}
	return nil
}

func responseError(status int, env apiEnvelope) error {
	if env.Error != "" {
		return fmt.Errorf("%s", env.Error)
	}
	return fmt.Errorf("request failed: %d", status)
}
