package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateSummary produces the study summary stored on the document row.
func (s *GeminiService) GenerateSummary(ctx context.Context, documentText string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	prompt := buildSummaryPrompt(documentText)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	summary := strings.TrimSpace(extractText(resp))
	if summary == "" {
		return "", fmt.Errorf("Gemini returned an empty summary")
	}
	return summary, nil
}

// GenerateQuiz produces count multiple-choice questions from the document
// text. Questions that fail validation are dropped rather than repaired.
func (s *GeminiService) GenerateQuiz(ctx context.Context, documentText string, count int) ([]models.Question, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildQuizPrompt(count, documentText)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := extractText(resp)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	var questions []models.Question
	if err := json.Unmarshal([]byte(rawText), &questions); err != nil {
		// Try to extract JSON array
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(rawText[start:end+1]), &questions)
		}
	}

	valid := validateQuestions(questions)
	if len(valid) == 0 {
		return nil, fmt.Errorf("quiz generation produced no usable questions")
	}
	return valid, nil
}

// Answer responds to a free-form question scoped to one document.
func (s *GeminiService) Answer(ctx context.Context, documentText, question string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	prompt := buildAskPrompt(documentText, question)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	answer := strings.TrimSpace(extractText(resp))
	if answer == "" {
		return "", fmt.Errorf("Gemini returned an empty answer")
	}
	return answer, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func buildSummaryPrompt(content string) string {
	var b strings.Builder

	b.WriteString("You are a professor preparing study material. Summarize the following notebook content ")
	b.WriteString("for a student revising the subject.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Cover every major topic in the content, nothing that is not in it\n")
	b.WriteString("- Use short sections with **bold** headings and plain-text bullet points\n")
	b.WriteString("- Be precise and avoid opinions\n")

	b.WriteString("\n---CONTENT---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildQuizPrompt(count int, content string) string {
	var b strings.Builder

	b.WriteString("You are an expert educational assessor. Generate multiple-choice quiz questions based on the following content.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", count))

	b.WriteString(`
JSON schema per question:
{"question": "string", "choices": ["string", "string", "string", "string"], "correct": "A"|"B"|"C"|"D", "explanation": "string"}

Exactly 4 choices per question, ordered A through D. "correct" is the letter of the right choice. "explanation" states in one sentence why that choice is right.
`)

	b.WriteString("\n---CONTENT---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildAskPrompt(content, question string) string {
	var b strings.Builder

	b.WriteString("You are a professor teaching a course. Use the following notebook content to answer ")
	b.WriteString("student questions accurately and concisely.\n")
	b.WriteString("Be precise and avoid opinions. Only state what is in the notebook content. ")
	b.WriteString("Do not state what is not in the given notebook.\n")

	b.WriteString("\n---CONTENT---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n\n")

	b.WriteString("Student question: ")
	b.WriteString(question)

	return b.String()
}

func validateQuestions(questions []models.Question) []models.Question {
	var valid []models.Question
	for _, q := range questions {
		if q.Question == "" || len(q.Choices) != 4 {
			continue
		}
		letter := strings.ToUpper(strings.TrimSpace(q.Correct))
		if len(letter) != 1 || letter < "A" || letter > "D" {
			continue
		}
		q.Correct = letter
		valid = append(valid, q)
	}
	return valid
}
