package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
)

// FileServiceImpl is the facade that wires use-case services for file operations.
type FileServiceImpl struct {
	cfg       *config.Config
	transport port.Transport
	index     *indexStore

	uploadUseCase   *uploadService
	downloadUseCase *downloadService
	syncUseCase     *syncService
	deleteUseCase   *deleteService
}

// Ensure FileServiceImpl implements port.FileService.
var _ port.FileService = (*FileServiceImpl)(nil)

// NewFileService builds the file service facade and all use-case services.
func NewFileService(cfg *config.Config, transport port.Transport, kv port.KVStore) *FileServiceImpl {
	svc := &FileServiceImpl{
		cfg:       cfg,
		transport: transport,
		index:     newIndexStore(kv, transport.ChannelID()),
	}

	svc.syncUseCase = newSyncService(svc)
	svc.uploadUseCase = newUploadService(svc)
	svc.downloadUseCase = newDownloadService(svc)
	svc.deleteUseCase = newDeleteService(svc)

	return svc
}

// UploadFile delegates to the upload use-case service.
func (s *FileServiceImpl) UploadFile(ctx context.Context, fileName string, reader io.Reader) (*port.UploadResult, error) {
	return s.uploadUseCase.uploadFile(ctx, fileName, reader)
}

// DownloadURL delegates transient URL resolution to the download use-case service.
func (s *FileServiceImpl) DownloadURL(ctx context.Context, fileID string) (string, error) {
	return s.downloadUseCase.downloadURL(ctx, fileID)
}

// DownloadFile streams content through the download use-case service.
func (s *FileServiceImpl) DownloadFile(ctx context.Context, fileID string, writer io.Writer) error {
	return s.downloadUseCase.downloadFile(ctx, fileID, writer)
}

// DeleteFile delegates to the delete use-case service.
func (s *FileServiceImpl) DeleteFile(ctx context.Context, messageID int64) error {
	return s.deleteUseCase.deleteFile(ctx, messageID)
}

// Sync reconciles the index with transport history now.
func (s *FileServiceImpl) Sync(ctx context.Context) (*SyncReport, error) {
	return s.syncUseCase.run(ctx)
}

// GetFileInfo reads the record key, falling back to a forced sync on a miss.
func (s *FileServiceImpl) GetFileInfo(ctx context.Context, fileID string) (*domain.FileRecord, error) {
	rec, err := s.lookupRecord(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		metrics.IndexLookups.WithLabelValues("hit").Inc()
		return rec, nil
	}
	metrics.IndexLookups.WithLabelValues("miss").Inc()

	if _, err := s.ListFiles(ctx, true); err != nil {
		return nil, err
	}
	rec, err = s.lookupRecord(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("file %s: %w", fileID, port.ErrNotFound)
	}
	return rec, nil
}

// lookupRecord returns nil for missing or tombstoned records. A tombstoned
// record is a leftover from a partial cleanup and is removed on sight.
func (s *FileServiceImpl) lookupRecord(ctx context.Context, fileID string) (*domain.FileRecord, error) {
	rec, found, err := s.index.getRecord(ctx, fileID)
	if err != nil || !found {
		return nil, err
	}

	deleted, err := s.index.isTombstoned(ctx, rec.MessageID)
	if err != nil {
		return nil, err
	}
	if deleted {
		if err := s.index.removeRecord(ctx, fileID); err != nil {
			logger.Warnw("Failed to drop tombstoned record", "file_id", fileID, "error", err.Error())
		}
		return nil, nil
	}
	return rec, nil
}

// ListFiles returns indexed records newest first. An empty index or
// forceRefresh runs the sync engine first.
func (s *FileServiceImpl) ListFiles(ctx context.Context, forceRefresh bool) ([]domain.FileRecord, error) {
	synced := false
	if forceRefresh {
		if _, err := s.syncUseCase.run(ctx); err != nil {
			return nil, err
		}
		synced = true
	}

	records, err := s.liveRecords(ctx)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 && !synced {
		if _, err := s.syncUseCase.run(ctx); err != nil {
			return nil, err
		}
		if records, err = s.liveRecords(ctx); err != nil {
			return nil, err
		}
	}

	domain.SortByUploadTimeDesc(records)
	return records, nil
}

// liveRecords lists indexed records minus any whose message was deleted.
func (s *FileServiceImpl) liveRecords(ctx context.Context) ([]domain.FileRecord, error) {
	records, _, err := s.index.listRecords(ctx)
	if err != nil {
		return nil, err
	}

	messageIDs := make([]int64, len(records))
	for i, r := range records {
		messageIDs[i] = r.MessageID
	}
	deleted, err := s.index.tombstoned(ctx, messageIDs)
	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return records, nil
	}

	live := records[:0]
	for _, r := range records {
		if deleted[r.MessageID] {
			continue
		}
		live = append(live, r)
	}
	return live, nil
}

// readRetry retries idempotent transport reads on transient failures.
func (s *FileServiceImpl) readRetry(ctx context.Context, fn func(context.Context) error) error {
	return resilience.Retry(ctx, resilience.RetryConfig{
		Attempts:    3,
		Delay:       250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		ShouldRetry: port.Retryable,
		DelayFor: func(err error) (time.Duration, bool) {
			var te *port.TransportError
			if errors.As(err, &te) && te.RetryAfter > 0 {
				return te.RetryAfter, true
			}
			return 0, false
		},
	}, fn)
}

// transportTimeout bounds a single transport call.
func (s *FileServiceImpl) transportTimeout() time.Duration {
	return s.cfg.TelegramTimeout()
}
