// Package storage keeps uploaded source files until they are sent for analysis.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/autostack/gateway/pkg/config"
)

// FileStore persists uploaded file content by key.
type FileStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns a not_found AppError for unknown keys.
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Backend() string
}

// NewFromConfig returns the configured store, or nil when STORAGE_TYPE is none.
func NewFromConfig(ctx context.Context, cfg *config.Config) (FileStore, error) {
	switch cfg.StorageType {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		s, err := NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}

// UploadKey is the key of an uploaded file: projects/{project}/{analysis}/{name}.
func UploadKey(projectID, analysisID uuid.UUID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return path.Join("projects", projectID.String(), analysisID.String(), name)
}

// ProjectPrefix is the key prefix shared by all uploads of a project.
func ProjectPrefix(projectID uuid.UUID) string {
	return "projects/" + projectID.String() + "/"
}

// BelongsTo reports whether key was issued for the project.
func BelongsTo(key string, projectID uuid.UUID) bool {
	return strings.HasPrefix(key, ProjectPrefix(projectID)) && !strings.Contains(key, "..")
}
