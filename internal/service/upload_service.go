package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"invoiceflow/internal/classifier"
	"invoiceflow/internal/domain"
	"invoiceflow/internal/port"
)

// UploadInput is the DTO for document upload requests.
type UploadInput struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// UploadResult tells the caller where the document landed and how it was
// classified, so it can be passed straight to a pipeline run.
type UploadResult struct {
	SourceReference string                `json:"source_reference"`
	ContentType     string                `json:"content_type"`
	SizeBytes       int64                 `json:"size_bytes"`
	Classification  domain.Classification `json:"classification"`
}

// UploadService stores source documents in object storage.
type UploadService interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

type uploadService struct {
	storage    port.ObjectStorage
	classifier *classifier.Classifier
	bucket     string
	maxBytes   int64
}

// NewUploadService creates a new UploadService implementation.
func NewUploadService(storage port.ObjectStorage, docClassifier *classifier.Classifier, bucket string, maxFileSizeMB int64) UploadService {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 50
	}
	return &uploadService{
		storage:    storage,
		classifier: docClassifier,
		bucket:     bucket,
		maxBytes:   maxFileSizeMB * 1024 * 1024,
	}
}

func (s *uploadService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	name := path.Base(strings.ReplaceAll(input.Header.Filename, "\\", "/"))
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrUnsupportedFileType)
	}
	if input.Header.Size > s.maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Magic-byte check on the first 512 bytes
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	if _, valid := domain.AllowedContentTypes[http.DetectContentType(buf[:n])]; !valid {
		return nil, fmt.Errorf("%q content: %w", name, domain.ErrUnsupportedFileType)
	}
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	key := fmt.Sprintf("uploads/%s/%s", uuid.New(), name)
	contentType := domain.ContentTypes[fileType]

	log.Printf("uploadService.Upload: uploading %s (%s, %d bytes) to %s/%s",
		name, contentType, input.Header.Size, s.bucket, key)

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.bucket,
		Key:         key,
		Body:        input.File,
		ContentType: contentType,
		Size:        input.Header.Size,
	}); err != nil {
		log.Printf("uploadService.Upload: storage upload failed for %s: %v", key, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	return &UploadResult{
		SourceReference: fmt.Sprintf("s3://%s/%s", s.bucket, key),
		ContentType:     contentType,
		SizeBytes:       input.Header.Size,
		Classification: s.classifier.Classify(key, domain.DocumentMetadata{
			ContentType: contentType,
			SizeBytes:   input.Header.Size,
			NameHint:    name,
		}),
	}, nil
}
