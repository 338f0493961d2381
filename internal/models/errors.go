// ABOUTME: Error taxonomy for enrollment, verification, and registry operations
// ABOUTME: Every domain failure carries a machine-checkable Kind plus sample context
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a domain failure
type ErrorKind string

const (
	KindSampleNotFound            ErrorKind = "sample_not_found"
	KindInsufficientAudio         ErrorKind = "insufficient_audio"
	KindNoSamplesProvided         ErrorKind = "no_samples_provided"
	KindEmbeddingExtractionFailed ErrorKind = "embedding_extraction_failed"
	KindSpeakerNotEnrolled        ErrorKind = "speaker_not_enrolled"
	KindDegenerateEmbedding       ErrorKind = "degenerate_embedding"
	KindInvalidThreshold          ErrorKind = "invalid_threshold"
	KindProviderUnavailable       ErrorKind = "provider_unavailable"

	// Data integrity and configurable limits
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindTooManySamples    ErrorKind = "too_many_samples"
	KindSampleTooLong     ErrorKind = "sample_too_long"
	KindStorageFailure    ErrorKind = "storage_failure"
	KindInternal          ErrorKind = "internal"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrSampleNotFound            = &Error{Kind: KindSampleNotFound}
	ErrInsufficientAudio         = &Error{Kind: KindInsufficientAudio}
	ErrNoSamplesProvided         = &Error{Kind: KindNoSamplesProvided}
	ErrEmbeddingExtractionFailed = &Error{Kind: KindEmbeddingExtractionFailed}
	ErrSpeakerNotEnrolled        = &Error{Kind: KindSpeakerNotEnrolled}
	ErrDegenerateEmbedding       = &Error{Kind: KindDegenerateEmbedding}
	ErrInvalidThreshold          = &Error{Kind: KindInvalidThreshold}
	ErrProviderUnavailable       = &Error{Kind: KindProviderUnavailable}
	ErrDimensionMismatch         = &Error{Kind: KindDimensionMismatch}
	ErrTooManySamples            = &Error{Kind: KindTooManySamples}
	ErrSampleTooLong             = &Error{Kind: KindSampleTooLong}
	ErrStorageFailure            = &Error{Kind: KindStorageFailure}
)

// Error is a classified domain failure.
//
// SampleIndex is 1-based and only meaningful when Sample is set, so a
// failed enrollment can name the offending sample.
type Error struct {
	Kind        ErrorKind
	Op          string
	SpeakerID   string
	Sample      string
	SampleIndex int
	Msg         string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Sample != "" {
		if e.SampleIndex > 0 {
			fmt.Fprintf(&b, " (sample %d: %s)", e.SampleIndex, e.Sample)
		} else {
			fmt.Fprintf(&b, " (sample: %s)", e.Sample)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for unclassified errors
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// NewError builds a classified error with a formatted message
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError classifies err under kind, keeping it as the cause
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithSample returns a copy of err annotated with the sample that caused it.
// Non-domain errors are classified as KindInternal.
func WithSample(err error, ref string, index int) error {
	if err == nil {
		return nil
	}
	var de *Error
	if !errors.As(err, &de) {
		return &Error{Kind: KindInternal, Sample: ref, SampleIndex: index, Err: err}
	}
	cp := *de
	cp.Sample = ref
	cp.SampleIndex = index
	return &cp
}
