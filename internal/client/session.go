package client

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

// QuestionResult is the graded outcome for a single question.
type QuestionResult struct {
	Index    int
	Given    string
	Correct  string
	IsRight  bool
	Expected models.Question
}

// GradeResult is the outcome of grading a full quiz.
type GradeResult struct {
	PerQuestion  []QuestionResult
	CorrectCount int
	Total        int
	Percent      int
}

// QuizSession holds one quiz lifecycle for the selected document: generate,
// answer, grade, persist. A new selection resets it via the registry.
type QuizSession struct {
	transport Transport
	registry  *Registry

	questions []models.Question
	answers   map[int]string
	graded    *GradeResult
	filename  string
}

func NewQuizSession(transport Transport, registry *Registry) *QuizSession {
	s := &QuizSession{
		transport: transport,
		registry:  registry,
		answers:   map[int]string{},
	}
	if registry != nil {
		registry.OnChange(s.Reset)
	}
	return s
}

// Generate requests a fresh quiz for the currently selected document.
// On transport failure the previous quiz, if any, stays in place.
func (s *QuizSession) Generate(ctx context.Context, numQuestions int) ([]models.Question, error) {
	doc, ok := s.registry.Current()
	if !ok {
		return nil, &NoDocumentSelectedError{}
	}

	questions, err := s.transport.GenerateQuiz(ctx, doc.Filename, numQuestions)
	if err != nil {
		return nil, err
	}

	s.questions = questions
	s.answers = map[int]string{}
	s.graded = nil
	s.filename = doc.Filename
	return questions, nil
}

// Questions returns the active quiz, nil when none has been generated.
func (s *QuizSession) Questions() []models.Question {
	return s.questions
}

// RecordAnswer stores the user's choice for a question. The letter is
// normalized, so "a)", " b " and "C." all register cleanly. Any held grade
// is discarded; the next Grade scores the current selections.
func (s *QuizSession) RecordAnswer(index int, letter string) bool {
	if index < 0 || index >= len(s.questions) {
		return false
	}
	norm := normalizeLetter(letter)
	if len(norm) != 1 || norm[0] < 'A' || norm[0] > 'D' {
		return false
	}
	s.answers[index] = norm
	s.graded = nil
	return true
}

// Grade scores the quiz all-or-nothing: if any question lacks an answer
// it reports which ones and grades nothing. Grading is idempotent for
// unchanged answers; changing an answer invalidates the held result.
func (s *QuizSession) Grade() (GradeResult, error) {
	if s.graded != nil {
		return *s.graded, nil
	}

	var missing []int
	for i := range s.questions {
		if _, ok := s.answers[i]; !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return GradeResult{}, &IncompleteAnswersError{Missing: missing}
	}

	result := GradeResult{Total: len(s.questions)}
	for i, q := range s.questions {
		given := s.answers[i]
		correct := normalizeLetter(q.Correct)
		right := given == correct
		if right {
			result.CorrectCount++
		}
		result.PerQuestion = append(result.PerQuestion, QuestionResult{
			Index:    i,
			Given:    given,
			Correct:  correct,
			IsRight:  right,
			Expected: q,
		})
	}
	if result.Total > 0 {
		result.Percent = int(math.Round(float64(result.CorrectCount) / float64(result.Total) * 100))
	}

	s.graded = &result
	return result, nil
}

// PersistResult sends the graded score to the server. Persistence is best
// effort: a failure is logged and never surfaces to the quiz flow.
func (s *QuizSession) PersistResult(ctx context.Context) {
	if s.graded == nil {
		return
	}
	g := s.graded
	err := s.transport.SaveResult(ctx, s.filename, g.CorrectCount, g.Total, g.Percent)
	if err != nil {
		log.Printf("save result failed for %q: %v", s.filename, err)
	}
}

// Ask sends a free-form question about the selected document.
func (s *QuizSession) Ask(ctx context.Context, question string) (string, error) {
	doc, ok := s.registry.Current()
	if !ok {
		return "", &NoDocumentSelectedError{}
	}
	return s.transport.Ask(ctx, doc.Filename, question)
}

// Reset discards the quiz, its answers and any grade.
func (s *QuizSession) Reset() {
	s.questions = nil
	s.answers = map[int]string{}
	s.graded = nil
	s.filename = ""
}

// normalizeLetter strips everything that is not a letter and uppercases
// the remainder.
func normalizeLetter(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
