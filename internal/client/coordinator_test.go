package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

// fakeTransport scripts transport behavior for the core packages.
type fakeTransport struct {
	mu sync.Mutex

	createJobID  string
	createErr    error
	createCalls  int
	reports      []models.ProgressReport
	pollErr      error
	pollCalls    int
	questions    []models.Question
	generateErr  error
	askAnswer    string
	askErr       error
	savedResults []models.SaveResultRequest
	saveErr      error
}

func (f *fakeTransport) CreateJob(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.createJobID == "" {
		return "job-1", nil
	}
	return f.createJobID, nil
}

func (f *fakeTransport) UploadFile(ctx context.Context, jobID, path string, onProgress func(float64)) error {
	return nil
}

func (f *fakeTransport) PollProgress(ctx context.Context, jobID string) (models.ProgressReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return models.ProgressReport{}, f.pollErr
	}
	i := f.pollCalls
	f.pollCalls++
	if i >= len(f.reports) {
		if len(f.reports) == 0 {
			return models.ProgressReport{Phase: models.PhaseQueued}, nil
		}
		return f.reports[len(f.reports)-1], nil
	}
	return f.reports[i], nil
}

func (f *fakeTransport) GenerateQuiz(ctx context.Context, filename string, count int) ([]models.Question, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.questions, nil
}

func (f *fakeTransport) Ask(ctx context.Context, filename, question string) (string, error) {
	if f.askErr != nil {
		return "", f.askErr
	}
	return f.askAnswer, nil
}

func (f *fakeTransport) SaveResult(ctx context.Context, filename string, correct, total, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedResults = append(f.savedResults, models.SaveResultRequest{
		Filename: filename, Correct: correct, Total: total, Percent: percent,
	})
	return nil
}

func (f *fakeTransport) ListResults(ctx context.Context) ([]models.QuizResult, error) {
	return nil, nil
}

func (f *fakeTransport) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return nil, nil
}

func (f *fakeTransport) Summary(ctx context.Context, filename string) (string, error) {
	return "", nil
}

func (f *fakeTransport) DeleteDocument(ctx context.Context, filename string) (string, error) {
	return "", nil
}

// manualTicker drives the poll loop deterministically from the test.
type manualTicker struct {
	ch chan time.Time
}

func newManualCoordinator(t *fakeTransport) (*Coordinator, *manualTicker) {
	mt := &manualTicker{ch: make(chan time.Time)}
	c := NewCoordinator(t, time.Second)
	c.newTicker = func(d time.Duration) (<-chan time.Time, func()) {
		return mt.ch, func() {}
	}
	return c, mt
}

func (m *manualTicker) tick() {
	m.ch <- time.Time{}
	// The poll handler runs on the loop goroutine; a second send cannot
	// proceed until the previous tick is fully handled, so after this
	// returns the prior tick's effects are visible.
}

func beginTracked(t *testing.T, c *Coordinator) string {
	t.Helper()
	jobID, err := c.BeginSubmission(context.Background())
	if err != nil {
		t.Fatalf("BeginSubmission: %v", err)
	}
	return jobID
}

func TestLocalTransferProgressMapsIntoUploadBand(t *testing.T) {
	c := NewCoordinator(&fakeTransport{}, time.Second)
	beginTracked(t, c)

	cases := []struct {
		fraction float64
		want     int
	}{
		{0.001, 1},
		{0.1, 4},
		{0.5, 20},
		{0.999, 39},
		{1.0, 40},
	}
	for _, tc := range cases {
		c.ReportLocalTransferProgress(tc.fraction)
		snap, _ := c.Snapshot()
		if snap.Pct != tc.want {
			t.Errorf("fraction %.3f: pct = %d, want %d", tc.fraction, snap.Pct, tc.want)
		}
	}
	snap, _ := c.Snapshot()
	if snap.Phase != models.PhaseUploading {
		t.Errorf("phase = %q, want uploading", snap.Phase)
	}
}

func TestLocalTransferProgressNeverRegresses(t *testing.T) {
	c := NewCoordinator(&fakeTransport{}, time.Second)
	beginTracked(t, c)

	c.ReportLocalTransferProgress(0.8)
	c.ReportLocalTransferProgress(0.3)
	snap, _ := c.Snapshot()
	if snap.Pct != 32 {
		t.Errorf("pct = %d, want 32 after out-of-order local events", snap.Pct)
	}
}

func TestFastUploadShowsCeilingBeforeAnyPoll(t *testing.T) {
	// A small file can finish before the first poll response lands. The
	// display must already show the full upload band, not wait on the
	// server.
	c := NewCoordinator(&fakeTransport{}, time.Second)
	beginTracked(t, c)

	c.ReportLocalTransferProgress(1.0)
	c.FinishLocalTransfer()

	snap, _ := c.Snapshot()
	if snap.Pct != 40 {
		t.Errorf("pct = %d, want 40 after transfer completes", snap.Pct)
	}
}

func TestFinishLocalTransferForcesCeiling(t *testing.T) {
	c := NewCoordinator(&fakeTransport{}, time.Second)
	beginTracked(t, c)

	c.ReportLocalTransferProgress(0.6)
	c.FinishLocalTransfer()

	snap, _ := c.Snapshot()
	if snap.Pct != 40 {
		t.Errorf("pct = %d, want 40 forced at end of transfer", snap.Pct)
	}
}

func TestMergeIgnoresLaggingServerUploadReports(t *testing.T) {
	job := models.Job{ID: "j", Phase: models.PhaseUploading, Pct: 30}

	_, applied := mergeReport(job, true, models.ProgressReport{Phase: models.PhaseUploading, Pct: 12})
	if applied {
		t.Fatal("lagging uploading report applied while local transfer active")
	}

	// Once the transfer is done the server takes over.
	merged, applied := mergeReport(job, false, models.ProgressReport{Phase: models.PhaseUploading, Pct: 12})
	if !applied {
		t.Fatal("report not applied after local transfer finished")
	}
	if merged.Pct != 30 {
		t.Errorf("pct = %d, want 30 held monotonically", merged.Pct)
	}
}

func TestMergeAppliesServerPhasesAfterTransfer(t *testing.T) {
	job := models.Job{ID: "j", Phase: models.PhaseUploading, Pct: 40}

	merged, applied := mergeReport(job, false, models.ProgressReport{Phase: models.PhaseProcessing, Pct: 55})
	if !applied {
		t.Fatal("processing report not applied")
	}
	if merged.Phase != models.PhaseProcessing || merged.Pct != 55 {
		t.Errorf("got %s/%d, want processing/55", merged.Phase, merged.Pct)
	}
}

func TestMergeAppliesProcessingEvenDuringLocalTransfer(t *testing.T) {
	// Only lagging uploading reports are suppressed; a server that has
	// already advanced past the upload band is authoritative.
	job := models.Job{ID: "j", Phase: models.PhaseUploading, Pct: 35}

	merged, applied := mergeReport(job, true, models.ProgressReport{Phase: models.PhaseProcessing, Pct: 42})
	if !applied || merged.Phase != models.PhaseProcessing || merged.Pct != 42 {
		t.Errorf("got applied=%v %s/%d, want processing/42", applied, merged.Phase, merged.Pct)
	}
}

func TestMergePctMonotonicOutsideError(t *testing.T) {
	job := models.Job{ID: "j", Phase: models.PhaseProcessing, Pct: 70}

	merged, _ := mergeReport(job, false, models.ProgressReport{Phase: models.PhaseProcessing, Pct: 55})
	if merged.Pct != 70 {
		t.Errorf("pct = %d, want 70 held against a lower report", merged.Pct)
	}

	merged, _ = mergeReport(job, false, models.ProgressReport{Phase: models.PhaseError, Pct: 100, Error: "disk full"})
	if merged.Phase != models.PhaseError || merged.Error != "disk full" {
		t.Errorf("error report not applied: %s/%q", merged.Phase, merged.Error)
	}
}

func TestPollLoopDrivesJobToCompletion(t *testing.T) {
	ft := &fakeTransport{reports: []models.ProgressReport{
		{Phase: models.PhaseProcessing, Pct: 45},
		{Phase: models.PhaseSummarizing, Pct: 90},
		{Phase: models.PhaseCompleted, Pct: 100},
	}}
	c, mt := newManualCoordinator(ft)

	var completed []string
	done := make(chan struct{})
	c.OnCompleted = func(jobID string) {
		completed = append(completed, jobID)
		close(done)
	}

	jobID := beginTracked(t, c)
	c.FinishLocalTransfer()
	c.Start(context.Background(), jobID)

	for i := 0; i < 3; i++ {
		mt.tick()
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback never fired")
	}

	snap, _ := c.Snapshot()
	if snap.Phase != models.PhaseCompleted || snap.Pct != 100 {
		t.Errorf("final state %s/%d, want completed/100", snap.Phase, snap.Pct)
	}
	if len(completed) != 1 || completed[0] != jobID {
		t.Errorf("completed callbacks = %v, want one for %s", completed, jobID)
	}
	if c.Polling() {
		t.Error("poller still active after terminal phase")
	}
}

func TestErrorReportStopsPollingAndSurfacesMessage(t *testing.T) {
	ft := &fakeTransport{reports: []models.ProgressReport{
		{Phase: models.PhaseError, Pct: 100, Error: "disk full"},
	}}
	c, mt := newManualCoordinator(ft)

	failures := make(chan error, 1)
	c.OnFailure = func(err error) { failures <- err }

	jobID := beginTracked(t, c)
	c.Start(context.Background(), jobID)
	mt.tick()

	select {
	case err := <-failures:
		var sre *ServerReportedError
		if !errors.As(err, &sre) {
			t.Fatalf("failure = %v, want *ServerReportedError", err)
		}
		if sre.Message != "disk full" {
			t.Errorf("failure message = %q, want %q", sre.Message, "disk full")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failure callback never fired")
	}
	if c.Polling() {
		t.Error("poller still active after error phase")
	}
	snap, _ := c.Snapshot()
	if snap.Phase != models.PhaseError {
		t.Errorf("phase = %q, want error", snap.Phase)
	}
}

func TestPollTransportFailureHaltsTracking(t *testing.T) {
	ft := &fakeTransport{pollErr: errors.New("connection refused")}
	c, mt := newManualCoordinator(ft)

	failures := make(chan error, 1)
	c.OnFailure = func(err error) { failures <- err }

	jobID := beginTracked(t, c)
	c.Start(context.Background(), jobID)
	mt.tick()

	select {
	case err := <-failures:
		var sre *ServerReportedError
		if errors.As(err, &sre) {
			t.Errorf("transport failure surfaced as *ServerReportedError: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failure callback never fired on poll error")
	}
	if c.Polling() {
		t.Error("poller still active after transport failure")
	}
}

func TestStartIsIdempotentWhilePolling(t *testing.T) {
	ft := &fakeTransport{reports: []models.ProgressReport{
		{Phase: models.PhaseProcessing, Pct: 50},
	}}
	c, mt := newManualCoordinator(ft)

	jobID := beginTracked(t, c)
	c.Start(context.Background(), jobID)
	c.Start(context.Background(), jobID)
	c.Start(context.Background(), jobID)

	mt.tick()

	// A single loop consumed the one tick sent; duplicate loops would
	// each need their own tick, so the count settles at exactly one.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ft.mu.Lock()
		calls := ft.pollCalls
		ft.mu.Unlock()
		if calls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("poll calls = %d, want 1 from a single loop", calls)
		}
		time.Sleep(time.Millisecond)
	}
	c.Stop()
}

func TestStopIsSafeToCallRepeatedly(t *testing.T) {
	c, _ := newManualCoordinator(&fakeTransport{})
	jobID := beginTracked(t, c)
	c.Start(context.Background(), jobID)

	c.Stop()
	c.Stop()
	c.Stop()
	if c.Polling() {
		t.Error("still polling after Stop")
	}
}

func TestStaleResponseFromSupersededJobIsDiscarded(t *testing.T) {
	ft := &fakeTransport{createJobID: "job-old"}
	c := NewCoordinator(ft, time.Second)

	oldID := beginTracked(t, c)
	oldGen := c.currentGeneration()

	ft.mu.Lock()
	ft.createJobID = "job-new"
	ft.mu.Unlock()
	beginTracked(t, c)

	// A response from the old job arrives late.
	c.applyReport(oldGen, oldID, models.ProgressReport{Phase: models.PhaseCompleted, Pct: 100})

	snap, _ := c.Snapshot()
	if snap.JobID != "job-new" {
		t.Fatalf("tracked job = %q, want job-new", snap.JobID)
	}
	if snap.Phase == models.PhaseCompleted {
		t.Error("stale completion from superseded job mutated the new job")
	}
}

func TestBeginSubmissionSupersedesActivePoller(t *testing.T) {
	ft := &fakeTransport{}
	c, _ := newManualCoordinator(ft)

	jobID := beginTracked(t, c)
	c.Start(context.Background(), jobID)
	if !c.Polling() {
		t.Fatal("poller not active")
	}

	beginTracked(t, c)
	if c.Polling() {
		t.Error("old poller survived a superseding submission")
	}
}

func TestBeginSubmissionWrapsCreateFailure(t *testing.T) {
	ft := &fakeTransport{createErr: errors.New("boom")}
	c := NewCoordinator(ft, time.Second)

	_, err := c.BeginSubmission(context.Background())
	var jce *JobCreationError
	if !errors.As(err, &jce) {
		t.Fatalf("err = %v, want *JobCreationError", err)
	}
	if _, ok := c.Snapshot(); ok {
		t.Error("job tracked despite creation failure")
	}
}

func TestOnUpdateFiresForEveryStateChange(t *testing.T) {
	c := NewCoordinator(&fakeTransport{}, time.Second)

	var snaps []Snapshot
	c.OnUpdate = func(s Snapshot) { snaps = append(snaps, s) }

	beginTracked(t, c)
	c.ReportLocalTransferProgress(0.5)
	c.FinishLocalTransfer()

	if len(snaps) != 3 {
		t.Fatalf("updates = %d, want 3", len(snaps))
	}
	if snaps[1].Pct != 20 || snaps[2].Pct != 40 {
		t.Errorf("update pcts = %d,%d, want 20,40", snaps[1].Pct, snaps[2].Pct)
	}
}
