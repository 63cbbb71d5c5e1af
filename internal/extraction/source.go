package extraction

import (
	"fmt"
	"strings"

	"invoiceflow/internal/domain"
)

const s3Scheme = "s3://"

// ParseSourceReference splits "s3://bucket/key" into its parts. A reference
// without a scheme is a key in defaultBucket.
func ParseSourceReference(ref, defaultBucket string) (bucket, key string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", fmt.Errorf("source_reference: %w", domain.ErrMissingParameter)
	}
	if strings.HasPrefix(ref, s3Scheme) {
		rest := strings.TrimPrefix(ref, s3Scheme)
		bucket, key, _ = strings.Cut(rest, "/")
		if bucket == "" || strings.Trim(key, "/") == "" {
			return "", "", fmt.Errorf("source_reference %q: expected s3://bucket/key: %w", ref, domain.ErrMalformedPayload)
		}
		return bucket, key, nil
	}
	key = strings.TrimLeft(ref, "/")
	if defaultBucket == "" {
		return "", "", fmt.Errorf("source_reference %q has no bucket and no default is configured: %w", ref, domain.ErrMalformedPayload)
	}
	return defaultBucket, key, nil
}
