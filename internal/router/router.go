package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vakinola/Studyassist-MVP/internal/handlers"
	"github.com/vakinola/Studyassist-MVP/internal/middleware"
	"github.com/vakinola/Studyassist-MVP/internal/websocket"
)

func New(
	uploadHandler *handlers.UploadHandler,
	quizHandler *handlers.QuizHandler,
	docsHandler *handlers.DocsHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// LLM-backed endpoints are expensive; keep trigger-happy clients out.
	generateLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Upload + progress ────
	r.Post("/init_upload", uploadHandler.InitUpload)
	r.Post("/upload", uploadHandler.Upload)
	r.Get("/progress/{job_id}", uploadHandler.Progress)
	r.Get("/ws/progress/{job_id}", wsHub.HandleProgress)

	// ──── Quiz + Q&A ────
	r.Group(func(r chi.Router) {
		r.Use(generateLimiter.Middleware)
		r.Post("/generate_quiz", quizHandler.Generate)
		r.Post("/ask", quizHandler.Ask)
	})
	r.Post("/save_result", quizHandler.SaveResult)
	r.Get("/results", quizHandler.Results)

	// ──── Documents ────
	r.Get("/documents", docsHandler.List)
	r.Get("/summary", docsHandler.Summary)
	r.Post("/delete_doc", docsHandler.Delete)

	return r
}
