package worker

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vakinola/Studyassist-MVP/internal/models"
	"github.com/vakinola/Studyassist-MVP/internal/repository"
	"github.com/vakinola/Studyassist-MVP/internal/services"
	"github.com/vakinola/Studyassist-MVP/internal/store"
)

// chunkRunes bounds how much document text goes into one summary call.
const chunkRunes = 8000

// Pool drains the document-processing queue. Each task picks up at the
// upload ceiling (40%) and walks the job to completed or error.
type Pool struct {
	redis       *redis.Client
	progress    *store.ProgressStore
	gemini      *services.GeminiService
	fileExtract *services.FileExtractService
	docRepo     *repository.DocumentRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	progress *store.ProgressStore,
	gemini *services.GeminiService,
	fileExtract *services.FileExtractService,
	docRepo *repository.DocumentRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		progress:    progress,
		gemini:      gemini,
		fileExtract: fileExtract,
		docRepo:     docRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, store.QueueDocumentProcessing).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var task models.ProcessingTask
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			log.Printf("Worker %d: failed to parse task: %v", id, err)
			continue
		}

		log.Printf("Worker %d: processing job %s (%s)", id, task.JobID, task.Filename)
		if err := p.process(ctx, task); err != nil {
			log.Printf("Worker %d: job %s failed: %v", id, task.JobID, err)
			p.progress.Fail(ctx, task.JobID, err.Error())
		}
	}
}

// process runs extract → summarize, reporting pct scaled from local 0–100
// into the server-side band [40,100].
func (p *Pool) process(ctx context.Context, task models.ProcessingTask) error {
	report := func(phase string, local int) {
		p.progress.Set(ctx, task.JobID, models.ProgressReport{
			Phase:    phase,
			Pct:      scale(local),
			Filename: task.Filename,
		})
	}

	report(models.PhaseProcessing, 2)

	text, err := p.fileExtract.ExtractTextFromPath(task.StoredPath)
	if err != nil {
		return err
	}
	report(models.PhaseProcessing, 10)

	// Summarize chunk by chunk so long documents show movement.
	chunks := splitChunks(text, chunkRunes)
	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		partial, err := p.gemini.GenerateSummary(ctx, chunk)
		if err != nil {
			return err
		}
		partials = append(partials, partial)
		report(models.PhaseProcessing, 10+65*(i+1)/len(chunks))
	}

	summary := partials[0]
	if len(partials) > 1 {
		// Synthesize the per-chunk summaries into one document summary.
		report(models.PhaseSummarizing, 90)
		summary, err = p.gemini.GenerateSummary(ctx, strings.Join(partials, "\n\n"))
		if err != nil {
			return err
		}
	} else {
		report(models.PhaseSummarizing, 90)
	}

	doc, err := p.docRepo.GetByFilename(ctx, task.Filename)
	if err != nil {
		return err
	}
	if err := p.docRepo.UpdateSummary(ctx, doc.ID, summary); err != nil {
		return err
	}

	return p.progress.Set(ctx, task.JobID, models.ProgressReport{
		Phase:    models.PhaseCompleted,
		Pct:      100,
		Filename: task.Filename,
	})
}

// scale maps a local 0–100 value into [UploadPctCeiling, 100].
func scale(local int) int {
	span := 100 - models.UploadPctCeiling
	return models.UploadPctCeiling + int(math.Round(float64(local)*float64(span)/100.0))
}

func splitChunks(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
