package domain

// ValidationStatus is the overall outcome of the extraction validator.
type ValidationStatus string

const (
	ValidationStatusPassed ValidationStatus = "PASSED"
	ValidationStatusFailed ValidationStatus = "FAILED"
)

// ConfidenceGrade buckets an overall extraction confidence.
type ConfidenceGrade string

const (
	GradeExcellent  ConfidenceGrade = "EXCELLENT"
	GradeGood       ConfidenceGrade = "GOOD"
	GradeAcceptable ConfidenceGrade = "ACCEPTABLE"
	GradePoor       ConfidenceGrade = "POOR"
)

// OutcomeStatus tags an EvaluationOutcome variant.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// ErrorKind classifies a per-evaluator failure.
type ErrorKind string

const (
	ErrorKindInvocation ErrorKind = "InvocationError"
)

// FileType represents the document formats the classifier recognizes.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/jpg":       FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// ContentTypes maps FileType back to its canonical MIME type.
var ContentTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}
