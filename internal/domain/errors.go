package domain

import "errors"

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMissingParameter  = errors.New("missing required parameter")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrInvocationFailed  = errors.New("evaluator invocation failed")
	ErrUnknownCapability = errors.New("unknown capability")
	ErrUnsupportedFormat = errors.New("unsupported export format")

	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUploadFailed        = errors.New("upload failed")
)
