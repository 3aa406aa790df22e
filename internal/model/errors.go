package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by directories when an ID does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError marks a record that cannot be matched. It discards the
// record but never aborts a batch.
type ValidationError struct {
	SourceDocument string
	CheckNo        string
	Reason         string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s (source %q, check %q)", e.Reason, e.SourceDocument, e.CheckNo)
}

// DeduplicationError marks a malformed batch. The whole dedup call fails.
type DeduplicationError struct {
	Err error
}

func (e *DeduplicationError) Error() string { return "dedup: " + e.Err.Error() }

func (e *DeduplicationError) Unwrap() error { return e.Err }

// DirectoryError wraps a failed search/get/create against the directory.
// It is fatal for the record being matched only.
type DirectoryError struct {
	Op   string
	Term string
	Err  error
}

func (e *DirectoryError) Error() string {
	if e.Term != "" {
		return fmt.Sprintf("directory %s %q: %v", e.Op, e.Term, e.Err)
	}
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// RecordError ties a per-record failure to the canonical record it came from.
type RecordError struct {
	RecordID string
	Err      error
}

func (e *RecordError) Error() string { return fmt.Sprintf("record %s: %v", e.RecordID, e.Err) }

func (e *RecordError) Unwrap() error { return e.Err }
