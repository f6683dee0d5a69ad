package types

import "errors"

// Failure markers wrapped by each component and classified with errors.Is
// at the orchestrator. Retry policy is keyed off the marker: asset,
// encoding and validation failures are never retried.
var (
	ErrContentGeneration = errors.New("content generation failed")
	ErrAsset             = errors.New("asset missing or corrupt")
	ErrEncoding          = errors.New("encoding failed")
	ErrUpload            = errors.New("upload failed")
	ErrValidation        = errors.New("platform validation failed")
	ErrPublishTransport  = errors.New("publish transport failed")
)
