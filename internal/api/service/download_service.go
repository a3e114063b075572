package service

import (
	"context"
	"errors"
	"io"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
)

// downloadService resolves transient file locations and streams content.
type downloadService struct {
	core *FileServiceImpl
}

// newDownloadService creates the download use-case service.
func newDownloadService(core *FileServiceImpl) *downloadService {
	return &downloadService{core: core}
}

// downloadURL resolves a fresh location every call. Only indexed, undeleted
// files are served: the transport keeps file ids valid after message deletion.
func (s *downloadService) downloadURL(ctx context.Context, fileID string) (string, error) {
	if _, err := s.core.GetFileInfo(ctx, fileID); err != nil {
		return "", err
	}

	var url string
	err := s.core.readRetry(ctx, func(execCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(execCtx, s.core.transportTimeout())
		defer cancel()

		var err error
		url, err = s.core.transport.FileURL(callCtx, fileID)
		return err
	})
	if err != nil {
		logger.Warnw("Download URL resolution failed", "file_id", fileID, "error", err.Error())
		return "", asDownloadErr("getFile", err)
	}
	return url, nil
}

// downloadFile streams file content to writer without exposing the transient URL.
func (s *downloadService) downloadFile(ctx context.Context, fileID string, writer io.Writer) error {
	url, err := s.downloadURL(ctx, fileID)
	if err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.core.transportTimeout())
	defer cancel()

	n, err := s.core.transport.Fetch(fetchCtx, url, writer)
	if err != nil {
		logger.Errorw("Download failed", "file_id", fileID, "bytes_written", n, "error", err.Error())
		return asDownloadErr("fetch", err)
	}
	logger.Debugw("Download completed", "file_id", fileID, "size_bytes", n)
	return nil
}

func asDownloadErr(op string, err error) error {
	if errors.Is(err, port.ErrDownloadFailed) || errors.Is(err, port.ErrNotFound) {
		return err
	}
	return port.NewTransportError(op, port.ErrDownloadFailed, 0, err)
}
