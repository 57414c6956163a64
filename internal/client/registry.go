package client

import (
	"sync"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

// Registry tracks which document the user has selected. Dependent state
// (an in-progress quiz, its answers) subscribes and is cleared whenever
// the selection actually changes.
type Registry struct {
	mu          sync.Mutex
	current     *models.Document
	subscribers []func()
}

func NewRegistry() *Registry {
	return &Registry{}
}

// OnChange registers a callback fired after every effective selection
// change, including deselection.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Select makes doc the active document. Re-selecting the already-active
// document is a no-op and leaves dependent state intact.
func (r *Registry) Select(doc models.Document) {
	r.mu.Lock()
	if r.current != nil && r.current.Filename == doc.Filename {
		r.mu.Unlock()
		return
	}
	d := doc
	r.current = &d
	subs := append([]func(){}, r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Deselect clears the active document.
func (r *Registry) Deselect() {
	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return
	}
	r.current = nil
	subs := append([]func(){}, r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Current returns the active document, or false when none is selected.
func (r *Registry) Current() (models.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return models.Document{}, false
	}
	return *r.current, true
}
