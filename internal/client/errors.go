package client

import (
	"fmt"
	"strings"
)

// JobCreationError means the server refused to allocate a job id; the
// submission was aborted before any bytes were sent.
type JobCreationError struct {
	Message string
}

func (e *JobCreationError) Error() string {
	return "could not start job: " + e.Message
}

// TransportError is any HTTP-level failure during upload or polling. It
// halts the coordinator for the current job; retry is a user decision.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerReportedError carries a terminal phase=error message verbatim.
type ServerReportedError struct {
	Message string
}

func (e *ServerReportedError) Error() string { return e.Message }

// NoDocumentSelectedError is a user-input precondition; nothing was sent to
// the server and no state changed.
type NoDocumentSelectedError struct{}

func (e *NoDocumentSelectedError) Error() string {
	return "please select a document first"
}

// IncompleteAnswersError blocks grading until every question has a
// selection. Missing holds the unanswered question indices in order.
type IncompleteAnswersError struct {
	Missing []int
}

func (e *IncompleteAnswersError) Error() string {
	nums := make([]string, len(e.Missing))
	for i, idx := range e.Missing {
		nums[i] = fmt.Sprintf("%d", idx+1)
	}
	return "please answer all questions before submitting (missing: " + strings.Join(nums, ", ") + ")"
}
