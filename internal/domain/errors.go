package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind is the stable machine-readable errorKind reported to clients.
type ErrorKind string

const (
	// intake
	KindNoFileProvided      ErrorKind = "no_file_provided"
	KindMalformedDataURI    ErrorKind = "malformed_data_uri"
	KindPayloadTooLarge     ErrorKind = "payload_too_large"
	KindUpstreamFetchFailed ErrorKind = "upstream_fetch_failed"

	// extraction
	KindUnsupportedArtifact             ErrorKind = "unsupported_kind"
	KindScannedDocumentNoText           ErrorKind = "scanned_document_no_text"
	KindNoExtractableText               ErrorKind = "no_extractable_text"
	KindEmptyTranscription              ErrorKind = "empty_transcription"
	KindPayloadTooLargeForTranscription ErrorKind = "payload_too_large_for_transcription"
	KindUpstreamTimeout                 ErrorKind = "upstream_timeout"
	KindUpstreamUnavailable             ErrorKind = "upstream_unavailable"
	KindCorruptDocument                 ErrorKind = "corrupt_document"
	KindProtectedDocument               ErrorKind = "protected_document"
	KindInvalidTextEncoding             ErrorKind = "invalid_text_encoding"

	// rate limiting
	KindRateLimitWindow ErrorKind = "rate_limit_window"
	KindRateLimitHourly ErrorKind = "rate_limit_hourly"

	// chunked upload and object storage
	KindUploadNotFound       ErrorKind = "upload_not_found"
	KindIncompleteUpload     ErrorKind = "incomplete_upload"
	KindStorageUnauthorized  ErrorKind = "storage_unauthorized"
	KindStorageQuotaExceeded ErrorKind = "storage_quota_exceeded"

	KindInternal ErrorKind = "internal"
)

var kindStatus = map[ErrorKind]int{
	KindNoFileProvided:      http.StatusBadRequest,
	KindMalformedDataURI:    http.StatusBadRequest,
	KindPayloadTooLarge:     http.StatusRequestEntityTooLarge,
	KindUpstreamFetchFailed: http.StatusBadGateway,

	KindUnsupportedArtifact:             http.StatusUnsupportedMediaType,
	KindScannedDocumentNoText:           http.StatusUnprocessableEntity,
	KindNoExtractableText:               http.StatusUnprocessableEntity,
	KindEmptyTranscription:              http.StatusUnprocessableEntity,
	KindPayloadTooLargeForTranscription: http.StatusRequestEntityTooLarge,
	KindUpstreamTimeout:                 http.StatusServiceUnavailable,
	KindUpstreamUnavailable:             http.StatusServiceUnavailable,
	KindCorruptDocument:                 http.StatusBadRequest,
	KindProtectedDocument:               http.StatusUnprocessableEntity,
	KindInvalidTextEncoding:             http.StatusBadRequest,

	KindRateLimitWindow: http.StatusTooManyRequests,
	KindRateLimitHourly: http.StatusTooManyRequests,

	KindUploadNotFound:       http.StatusNotFound,
	KindIncompleteUpload:     http.StatusBadRequest,
	KindStorageUnauthorized:  http.StatusBadGateway,
	KindStorageQuotaExceeded: http.StatusServiceUnavailable,

	KindInternal: http.StatusInternalServerError,
}

func (k ErrorKind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is the typed failure every component boundary returns.
// Message is safe to show to clients; Err carries the internal cause for logs only.
type Error struct {
	Kind           ErrorKind
	Message        string
	UpstreamStatus int
	RetryAfter     time.Duration
	Err            error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status maps the error to an HTTP status. A remote reference that upstream
// reported as missing surfaces as 404 rather than a gateway failure.
func (e *Error) Status() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	if e.Kind == KindUpstreamFetchFailed && e.UpstreamStatus == http.StatusNotFound {
		return http.StatusNotFound
	}
	return e.Kind.Status()
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a typed *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) && de != nil {
		return de, true
	}
	return nil, false
}

// KindOf returns KindInternal for untyped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Capability sentinels. External collaborators wrap these so strategies can
// translate vendor failures into the taxonomy above without vendor imports.
var (
	ErrCredentialMissing         = errors.New("capability credential missing")
	ErrCapabilityUnavailable     = errors.New("capability unavailable")
	ErrCapabilityPayloadTooLarge = errors.New("capability payload too large")
	ErrCapabilityEmptyResult     = errors.New("capability returned empty result")
	ErrUpstreamTimeout           = errors.New("upstream call timed out")

	ErrDocumentCorrupt     = errors.New("document is corrupt")
	ErrDocumentEncrypted   = errors.New("document is password protected")
	ErrDocumentNoText      = errors.New("document has no extractable text")
	ErrUnsupportedFormat   = errors.New("unsupported document format")
	ErrStorageUnauthorized = errors.New("object storage authorization failure")
	ErrStorageQuota        = errors.New("object storage quota exceeded")
)
