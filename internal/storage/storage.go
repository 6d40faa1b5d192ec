package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// MaxObjectSize is the largest blob accepted by Put
	MaxObjectSize = 10 << 20

	ContentTypeMidi  = "audio/midi"
	ContentTypeXMidi = "audio/x-midi"
)

var (
	ErrNotFound        = errors.New("object not found")
	ErrTooLarge        = fmt.Errorf("object exceeds %d bytes", MaxObjectSize)
	ErrContentType     = errors.New("content type not allowed")
	ErrInvalidKey      = errors.New("invalid object key")
	allowedContentType = map[string]bool{
		ContentTypeMidi:  true,
		ContentTypeXMidi: true,
	}
)

// ObjectStore persists opaque blobs by key. Put returns the key it stored under.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey is the blob key for a generation file
func ObjectKey(userID, id string) string {
	return userID + "/" + id + ".mid"
}

// CleanKey normalizes a key and rejects anything that would escape the store
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func checkPut(key string, data []byte, contentType string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if len(data) > MaxObjectSize {
		return "", ErrTooLarge
	}
	if !allowedContentType[contentType] {
		return "", fmt.Errorf("%w: %q", ErrContentType, contentType)
	}
	return cleaned, nil
}
