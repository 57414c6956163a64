package client

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vakinola/Studyassist-MVP/internal/models"
)

// Snapshot is what the presentation layer renders: the single source of
// truth for phase and percentage.
type Snapshot struct {
	JobID string
	Phase string
	Pct   int
	Error string
}

// Coordinator owns the one active job. It merges client-observed transfer
// progress with server-reported phase progress and enforces that at most
// one poller runs at a time.
type Coordinator struct {
	transport Transport
	interval  time.Duration

	// newTicker is swappable so tests control time. The returned stop
	// function must be safe to call more than once.
	newTicker func(d time.Duration) (<-chan time.Time, func())

	// OnUpdate fires after every state change with the merged snapshot.
	OnUpdate func(Snapshot)
	// OnCompleted fires once when a job reaches completed. The document
	// list must then be refreshed from the server, not rebuilt locally.
	OnCompleted func(jobID string)
	// OnFailure fires once per failed job: a *ServerReportedError when the
	// server reported phase=error, the transport error otherwise. The
	// submission control should be re-enabled so the user can retry.
	OnFailure func(err error)

	mu          sync.Mutex
	job         *models.Job
	generation  int  // bumps on every submission; stale responses carry an old value
	localActive bool // bytes still flowing out
	localPct    int
	polling     bool
	stopTicker  func()
	pollStop    chan struct{}
}

func NewCoordinator(transport Transport, interval time.Duration) *Coordinator {
	return &Coordinator{
		transport: transport,
		interval:  interval,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			var once sync.Once
			return t.C, func() { once.Do(t.Stop) }
		},
	}
}

// BeginSubmission supersedes any in-flight job and allocates a new one.
// The previous job's poller is stopped and its late responses will be
// discarded; two jobs never interleave on the shared display.
func (c *Coordinator) BeginSubmission(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.stopLocked()
	c.job = nil
	c.generation++
	c.mu.Unlock()

	jobID, err := c.transport.CreateJob(ctx)
	if err != nil {
		if _, ok := err.(*JobCreationError); ok {
			return "", err
		}
		return "", &JobCreationError{Message: err.Error()}
	}

	c.mu.Lock()
	c.job = &models.Job{ID: jobID, Phase: models.PhaseQueued, Pct: 0}
	c.localActive = true
	c.localPct = 0
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return jobID, nil
}

// Submit runs the whole submission flow: allocate a job, start polling,
// stream the file while feeding local progress, then let the server-side
// phases take over.
func (c *Coordinator) Submit(ctx context.Context, path string) (string, error) {
	jobID, err := c.BeginSubmission(ctx)
	if err != nil {
		return "", err
	}

	c.Start(ctx, jobID)

	gen := c.currentGeneration()
	go func() {
		err := c.transport.UploadFile(ctx, jobID, path, func(fraction float64) {
			c.reportLocalProgress(gen, fraction)
		})
		if err != nil {
			c.failSubmission(gen, err)
			return
		}
		c.finishLocalTransfer(gen)
	}()

	return jobID, nil
}

// ReportLocalTransferProgress feeds byte-level transfer events. The local
// value owns the display while the transfer runs: it maps into [1,40] and
// never regresses.
func (c *Coordinator) ReportLocalTransferProgress(fraction float64) {
	c.reportLocalProgress(c.currentGeneration(), fraction)
}

func (c *Coordinator) reportLocalProgress(gen int, fraction float64) {
	pct := localTransferPct(fraction)

	c.mu.Lock()
	if c.job == nil || gen != c.generation || !c.localActive {
		c.mu.Unlock()
		return
	}
	if pct > c.localPct {
		c.localPct = pct
	}
	if c.job.Phase == models.PhaseQueued {
		c.job.Phase = models.PhaseUploading
	}
	if c.job.Phase == models.PhaseUploading && c.localPct > c.job.Pct {
		c.job.Pct = c.localPct
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// FinishLocalTransfer marks the byte transfer done. If the observed pct
// never reached the ceiling it is forced there before server phases are
// trusted.
func (c *Coordinator) FinishLocalTransfer() {
	c.finishLocalTransfer(c.currentGeneration())
}

func (c *Coordinator) finishLocalTransfer(gen int) {
	c.mu.Lock()
	if c.job == nil || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.localActive = false
	if c.localPct < models.UploadPctCeiling {
		c.localPct = models.UploadPctCeiling
	}
	if !models.TerminalPhase(c.job.Phase) && c.job.Pct < models.UploadPctCeiling {
		c.job.Pct = models.UploadPctCeiling
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Start begins polling for jobID. Idempotent: while any poller is active
// a second call is a no-op, so duplicate trigger events are harmless.
func (c *Coordinator) Start(ctx context.Context, jobID string) {
	c.mu.Lock()
	if c.polling {
		c.mu.Unlock()
		return
	}
	c.polling = true
	gen := c.generation
	tick, stopTick := c.newTicker(c.interval)
	stop := make(chan struct{})
	c.stopTicker = stopTick
	c.pollStop = stop
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				c.Stop()
				return
			case <-tick:
				c.pollTick(ctx, gen, jobID)
			}
		}
	}()
}

// Stop cancels polling. Safe to call repeatedly; invoked on page-unload
// equivalents and implicitly by a superseding submission.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

func (c *Coordinator) stopLocked() {
	if !c.polling {
		return
	}
	c.polling = false
	if c.stopTicker != nil {
		c.stopTicker()
		c.stopTicker = nil
	}
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

// PollOnce issues one status request and applies the result. Exposed for
// callers that drive their own cadence.
func (c *Coordinator) PollOnce(ctx context.Context, jobID string) (models.ProgressReport, error) {
	gen := c.currentGeneration()
	report, err := c.transport.PollProgress(ctx, jobID)
	if err != nil {
		c.failSubmission(gen, err)
		return models.ProgressReport{}, err
	}
	c.applyReport(gen, jobID, report)
	return report, nil
}

func (c *Coordinator) pollTick(ctx context.Context, gen int, jobID string) {
	report, err := c.transport.PollProgress(ctx, jobID)
	if err != nil {
		// One failed poll halts tracking for this job; no automatic retry.
		c.failSubmission(gen, err)
		return
	}
	c.applyReport(gen, jobID, report)
}

// applyReport merges a server report into the tracked job. Responses from
// superseded submissions (stale generation or mismatched id) are discarded.
func (c *Coordinator) applyReport(gen int, jobID string, report models.ProgressReport) {
	c.mu.Lock()
	if c.job == nil || gen != c.generation || c.job.ID != jobID {
		c.mu.Unlock()
		return
	}

	merged, applied := mergeReport(*c.job, c.localActive, report)
	if !applied {
		c.mu.Unlock()
		return
	}
	*c.job = merged

	var completed bool
	var failure *ServerReportedError
	if merged.Phase == models.PhaseCompleted {
		completed = true
		c.stopLocked()
	} else if merged.Phase == models.PhaseError {
		msg := merged.Error
		if msg == "" {
			msg = "Unknown error"
		}
		failure = &ServerReportedError{Message: msg}
		c.stopLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	if completed && c.OnCompleted != nil {
		c.OnCompleted(jobID)
	}
	if failure != nil && c.OnFailure != nil {
		c.OnFailure(failure)
	}
}

// failSubmission handles transport-level failures: the job moves to error,
// polling stops and the submission control is released for a retry.
func (c *Coordinator) failSubmission(gen int, cause error) {
	c.mu.Lock()
	if c.job == nil || gen != c.generation || models.TerminalPhase(c.job.Phase) {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.job.Phase = models.PhaseError
	c.job.Error = cause.Error()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	if c.OnFailure != nil {
		c.OnFailure(cause)
	}
}

// Snapshot returns the current merged view, or false when no job is
// tracked.
func (c *Coordinator) Snapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return Snapshot{}, false
	}
	return c.snapshotLocked(), true
}

// Polling reports whether a poller is currently active.
func (c *Coordinator) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polling
}

func (c *Coordinator) currentGeneration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		JobID: c.job.ID,
		Phase: c.job.Phase,
		Pct:   c.job.Pct,
		Error: c.job.Error,
	}
}

func (c *Coordinator) notify(snap Snapshot) {
	if c.OnUpdate != nil {
		c.OnUpdate(snap)
	}
}

// mergeReport reconciles a server report with the client-observed job
// state. While the local transfer is active and the server still says
// uploading below the ceiling, the client-observed value wins: the server
// lags the socket and must not walk the display backwards. Everywhere
// else the server is authoritative, except that pct never regresses
// outside the error phase.
func mergeReport(job models.Job, localActive bool, report models.ProgressReport) (models.Job, bool) {
	if localActive && report.Phase == models.PhaseUploading && report.Pct < models.UploadPctCeiling {
		return job, false
	}

	job.Phase = report.Phase
	if report.Phase == models.PhaseError {
		job.Error = report.Error
		job.Pct = report.Pct
		return job, true
	}

	if report.Pct > job.Pct {
		job.Pct = report.Pct
	}
	return job, true
}

// localTransferPct maps a transfer fraction into the client-owned band:
// floor(fraction*40), at least 1 once any bytes have been sent.
func localTransferPct(fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}
	pct := int(math.Floor(fraction * float64(models.UploadPctCeiling)))
	if pct < 1 {
		pct = 1
	}
	return pct
}
