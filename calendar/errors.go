/*
errors.go - Error taxonomy for the calendar core

ERROR CATEGORIES:
  1. Validation errors - rejected before any state mutation, safe to retry
     after correcting input (overlap, future day, locked day, already sent,
     send in flight, duplicate submission)
  2. Storage errors - adapter I/O failures surfaced to the caller; any
     optimistic in-memory change is compensated by the caller
  3. Submission errors - backend failures recorded on the submission record,
     never returned past the queue

USAGE:
  if errors.Is(err, calendar.ErrOverlap) {
      var oe *calendar.OverlapError
      errors.As(err, &oe) // oe.Conflict names the blocking shift
  }
*/
package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrOverlap             = errors.New("overlaps an existing shift")
	ErrFutureDay           = errors.New("future day")
	ErrAlreadySent         = errors.New("already sent")
	ErrSendInFlight        = errors.New("submission is being sent")
	ErrDuplicateSubmission = errors.New("submission already exists for week")
	ErrDayLocked           = errors.New("day is locked")
	ErrDayNotConfirmed     = errors.New("day is not confirmed")
	ErrWeekIncomplete      = errors.New("week is not fully confirmed")
	ErrInvalidWeekStart    = errors.New("week key must be a Monday")
	ErrNoArmedTemplate     = errors.New("no template armed for placement")
	ErrInvalidInput        = errors.New("invalid input")

	ErrNotFound           = errors.New("not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrInstanceNotFound   = errors.New("instance not found")
	ErrTrackingNotFound   = errors.New("tracking record not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrStorage matches every StorageError.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError is a rule violation detected before any mutation.
type ValidationError struct {
	Reason error
	Date   DateKey
	Detail string
}

func (e *ValidationError) Error() string {
	msg := e.Reason.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Date != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Date)
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func invalid(detail string) error {
	return &ValidationError{Reason: ErrInvalidInput, Detail: detail}
}

func rejected(reason error, date DateKey) error {
	return &ValidationError{Reason: reason, Date: date}
}

// OverlapError names the instance that blocked a placement or reschedule.
type OverlapError struct {
	Date     DateKey
	Conflict ShiftInstance
}

func (e *OverlapError) Error() string {
	start, end := e.Conflict.Window()
	return fmt.Sprintf("overlaps %q on %s (%s-%s)", e.Conflict.Name, e.Date,
		TimeOfDay(start), TimeOfDay(end))
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// ConflictError reports an existing submission for a week.
type ConflictError struct {
	WeekStart DateKey
	Existing  WeeklySubmission
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("submission %s already exists for week %s (status %s)",
		e.Existing.ID, e.WeekStart, e.Existing.Status)
}

func (e *ConflictError) Unwrap() error { return ErrDuplicateSubmission }

// StorageError wraps an adapter failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// WrapStorage returns nil for nil, and otherwise a StorageError for op.
// Errors that already are StorageErrors pass through unchanged.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// SubmissionError is a backend failure for one submission record.
type SubmissionError struct {
	SubmissionID string
	Err          error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission %s: %v", e.SubmissionID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether err is a client-correctable rule violation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrDuplicateSubmission)
}

// IsNotFound reports whether err names a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrTrackingNotFound) ||
		errors.Is(err, ErrSubmissionNotFound)
}

// IsRetryable reports whether repeating the same call may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
