package port

import (
	"context"
	"io"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
)

// UploadResult is returned after a file is stored.
type UploadResult struct {
	FileID    string            `json:"fileId"`
	MessageID int64             `json:"messageId"`
	Record    domain.FileRecord `json:"record"`
}

// FileService defines the blob store operations.
type FileService interface {
	// UploadFile stores content as an attachment and indexes it.
	UploadFile(ctx context.Context, fileName string, reader io.Reader) (*UploadResult, error)

	// DownloadURL resolves a transient URL for the file. It is never cached.
	DownloadURL(ctx context.Context, fileID string) (string, error)

	// DownloadFile streams the file content to writer.
	DownloadFile(ctx context.Context, fileID string, writer io.Writer) error

	// GetFileInfo returns the indexed record, reconciling on a miss.
	GetFileInfo(ctx context.Context, fileID string) (*domain.FileRecord, error)

	// ListFiles returns records newest first, syncing when the index is empty or forced.
	ListFiles(ctx context.Context, forceRefresh bool) ([]domain.FileRecord, error)

	// DeleteFile removes the underlying message and then the index entries.
	DeleteFile(ctx context.Context, messageID int64) error
}

// IssueResult is returned by LinkService.Issue.
type IssueResult struct {
	ShortID    string    `json:"shortId"`
	URL        string    `json:"shortUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
	ExpiresIn  int64     `json:"expiresIn"`
	IsExisting bool      `json:"isExisting"`
}

// LegacyReport summarizes a legacy short link migration.
type LegacyReport struct {
	Scanned  int `json:"scanned"`
	Migrated int `json:"migrated"`
	Expired  int `json:"expired"`
	Skipped  int `json:"skipped"`
	Deleted  int `json:"deleted"`
}

// LinkService mints and resolves expiring share links.
type LinkService interface {
	Issue(ctx context.Context, fileID string, ttl time.Duration) (*IssueResult, error)
	Resolve(ctx context.Context, shortID string) (string, error)
	MigrateLegacy(ctx context.Context) (*LegacyReport, error)
	PurgeLegacy(ctx context.Context) (int, error)
}
