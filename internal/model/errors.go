package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies entry-level verification failures.
type ErrorKind string

const (
	// KindNotFound: no local archive and no successful fetch for any citation.
	KindNotFound ErrorKind = "NotFound"
	// KindFetchFailed: network error, timeout, non-2xx status, or content too
	// short to be a reliable archive.
	KindFetchFailed ErrorKind = "FetchFailed"
	// KindScoringError: the entry itself is malformed (missing fields the
	// matcher requires).
	KindScoringError ErrorKind = "ScoringError"
	// KindOracleError: the external judgment call failed or returned
	// unparseable output.
	KindOracleError ErrorKind = "OracleError"
)

// EntryError is an entry-level verification error. It never aborts a batch;
// the verifier records it on the entry's result and moves on.
type EntryError struct {
	Kind    ErrorKind
	EntryID string
	URL     string
	Detail  string
	Err     error
}

func (e *EntryError) Error() string {
	msg := fmt.Sprintf("%s: %s (entry %s", e.Kind, e.Detail, e.EntryID)
	if e.URL != "" {
		msg += ", " + e.URL
	}
	return msg + ")"
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Summary renders the short "Kind: detail" form stored on VerificationResult.
func (e *EntryError) Summary() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewEntryError builds an EntryError, keeping cause for errors.Is/As chains.
func NewEntryError(kind ErrorKind, entryID, url, detail string, cause error) *EntryError {
	return &EntryError{Kind: kind, EntryID: entryID, URL: url, Detail: detail, Err: cause}
}

// AsEntryError unwraps err to an *EntryError if one is in the chain.
func AsEntryError(err error) (*EntryError, bool) {
	var ee *EntryError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
