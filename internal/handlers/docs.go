package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/vakinola/Studyassist-MVP/internal/models"
	"github.com/vakinola/Studyassist-MVP/internal/repository"
)

type DocsHandler struct {
	docRepo *repository.DocumentRepo
}

func NewDocsHandler(docRepo *repository.DocumentRepo) *DocsHandler {
	return &DocsHandler{docRepo: docRepo}
}

// List is the refresh surface clients hit after a job completes: the server,
// not the client, is the source of truth for what exists.
func (h *DocsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docRepo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not load documents.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"documents": docs,
	})
}

// Summary returns the stored summary for one document; an empty string when
// none has been built yet.
func (h *DocsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")

	summary := ""
	if filename != "" {
		doc, err := h.docRepo.GetByFilename(r.Context(), filename)
		if err == nil && doc.Summary != nil {
			summary = *doc.Summary
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, models.SummaryResponse{OK: true, Summary: summary})
}

func (h *DocsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteDocRequest
	json.NewDecoder(r.Body).Decode(&req)

	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "Please select a document to delete.")
		return
	}

	doc, err := h.docRepo.GetByFilename(r.Context(), req.Filename)
	if err != nil {
		writeError(w, http.StatusNotFound, "Selected document not found.")
		return
	}

	if err := os.Remove(doc.StoredPath); err != nil && !os.IsNotExist(err) {
		log.Printf("delete_doc: could not remove %s: %v", doc.StoredPath, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete the stored file.")
		return
	}

	if err := h.docRepo.Delete(r.Context(), req.Filename); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Selected document not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete the document.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": fmt.Sprintf("Deleted '%s' successfully.", req.Filename),
	})
}
