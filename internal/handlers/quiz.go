package handlers

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/vakinola/Studyassist-MVP/internal/models"
	"github.com/vakinola/Studyassist-MVP/internal/repository"
	"github.com/vakinola/Studyassist-MVP/internal/services"
)

const (
	defaultQuizQuestions = 5
	maxQuizQuestions     = 20
	resultListLimit      = 50
)

type QuizHandler struct {
	docRepo     *repository.DocumentRepo
	resultRepo  *repository.ResultRepo
	gemini      *services.GeminiService
	fileExtract *services.FileExtractService
}

func NewQuizHandler(docRepo *repository.DocumentRepo, resultRepo *repository.ResultRepo, gemini *services.GeminiService, fileExtract *services.FileExtractService) *QuizHandler {
	return &QuizHandler{
		docRepo:     docRepo,
		resultRepo:  resultRepo,
		gemini:      gemini,
		fileExtract: fileExtract,
	}
}

func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuizRequest
	json.NewDecoder(r.Body).Decode(&req)

	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "Please select a document before generating a quiz.")
		return
	}

	num := req.NumQuestions
	if num <= 0 {
		num = defaultQuizQuestions
	}
	if num > maxQuizQuestions {
		num = maxQuizQuestions
	}

	text, err := h.documentText(r, req.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a document before generating a quiz.")
		return
	}

	quiz, err := h.gemini.GenerateQuiz(r.Context(), text, num)
	if err != nil {
		log.Printf("generate_quiz: %s: %v", req.Filename, err)
		writeError(w, http.StatusInternalServerError, "Quiz generation failed. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateQuizResponse{OK: true, Quiz: quiz})
}

func (h *QuizHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	json.NewDecoder(r.Body).Decode(&req)

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required.")
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "Please select a document before asking a question.")
		return
	}

	text, err := h.documentText(r, req.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a document before asking a question.")
		return
	}

	answer, err := h.gemini.Answer(r.Context(), text, req.Question)
	if err != nil {
		log.Printf("ask: %s: %v", req.Filename, err)
		writeError(w, http.StatusInternalServerError, "Could not answer the question. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, models.AskResponse{OK: true, Answer: answer})
}

// SaveResult persists a grading outcome. Percent is recomputed when the
// client omits it.
func (h *QuizHandler) SaveResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
		Correct  *int   `json:"correct"`
		Total    *int   `json:"total"`
		Percent  *int   `json:"percent"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	if req.Filename == "" || req.Correct == nil || req.Total == nil {
		writeError(w, http.StatusBadRequest, "Missing result data")
		return
	}
	if *req.Total <= 0 || *req.Correct < 0 || *req.Correct > *req.Total {
		writeError(w, http.StatusBadRequest, "Missing result data")
		return
	}

	percent := 0
	if req.Percent != nil {
		percent = *req.Percent
	} else {
		percent = int(math.Round(float64(*req.Correct) / float64(*req.Total) * 100))
	}

	result := &models.QuizResult{
		Filename: req.Filename,
		Correct:  *req.Correct,
		Total:    *req.Total,
		Percent:  percent,
	}
	if err := h.resultRepo.Create(r.Context(), result); err != nil {
		log.Printf("save_result: %s: %v", req.Filename, err)
		writeError(w, http.StatusInternalServerError, "Could not save the result.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *QuizHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultRepo.List(r.Context(), resultListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not load results.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"results": results,
	})
}

func (h *QuizHandler) documentText(r *http.Request, filename string) (string, error) {
	doc, err := h.docRepo.GetByFilename(r.Context(), filename)
	if err != nil {
		return "", err
	}
	return h.fileExtract.ExtractTextFromPath(doc.StoredPath)
}
