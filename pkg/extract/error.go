package extract

import "errors"

// ErrExtractionFailed indicates the model could not produce any response.
// Callers map this to a retryable service-level failure.
var ErrExtractionFailed = errors.New("extraction failed")

// ErrInvalidResult indicates the model responded but the payload is unusable:
// missing required fields, unparsable JSON, or a malformed date.
var ErrInvalidResult = errors.New("invalid extraction result")
