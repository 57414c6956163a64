package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file after the server accepted it. Summary stays
// nil until the processing job finishes.
type Document struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	StoredPath string    `json:"-"`
	Summary    *string   `json:"summary,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type SummaryResponse struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
}

type DeleteDocRequest struct {
	Filename string `json:"filename"`
}
