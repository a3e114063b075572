package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
)

// uploadService posts content to the channel and indexes the resulting message.
type uploadService struct {
	core *FileServiceImpl
}

// newUploadService creates the upload use-case service.
func newUploadService(core *FileServiceImpl) *uploadService {
	return &uploadService{core: core}
}

// uploadFile performs the full upload workflow from stream to index.
func (s *uploadService) uploadFile(ctx context.Context, fileName string, reader io.Reader) (*port.UploadResult, error) {
	name := sanitizeFileName(fileName)

	content, err := s.readBounded(reader)
	if err != nil {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return nil, err
	}

	logger.Infow("Upload started", "file_name", name, "size_bytes", len(content))

	sendCtx, cancel := context.WithTimeout(ctx, s.core.transportTimeout())
	defer cancel()

	msg, err := s.core.transport.SendDocument(sendCtx, name, content)
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		logger.Errorw("Upload failed", "file_name", name, "error", err.Error())
		if !errors.Is(err, port.ErrUploadFailed) {
			err = port.NewTransportError("sendDocument", port.ErrUploadFailed, 0, err)
		}
		return nil, err
	}

	rec := recordFromMessage(*msg, s.core.transport.ChannelID())
	if rec.FileName == "" {
		rec.FileName = name
	}
	if rec.FileSize == 0 {
		rec.FileSize = int64(len(content))
	}

	// The message is already posted; a missed index write is healed by the next sync.
	if err := s.core.index.addRecord(ctx, rec); err != nil {
		logger.Errorw("Index write failed after upload", "file_id", rec.FileID, "message_id", rec.MessageID, "error", err.Error())
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	metrics.UploadedBytes.Add(float64(rec.FileSize))
	logger.Infow("Upload completed", "file_id", rec.FileID, "message_id", rec.MessageID, "size_bytes", rec.FileSize)

	return &port.UploadResult{FileID: rec.FileID, MessageID: rec.MessageID, Record: rec}, nil
}

// readBounded buffers the upload, rejecting empty or oversized content.
func (s *uploadService) readBounded(reader io.Reader) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: no content", port.ErrInvalidInput)
	}
	limit := s.core.cfg.App.MaxFileSize
	content, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read content: %v", port.ErrUploadFailed, err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", port.ErrTooLarge, limit)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", port.ErrInvalidInput)
	}
	return content, nil
}

// recordFromMessage projects an attachment-bearing message into a FileRecord.
func recordFromMessage(msg port.Message, channelID string) domain.FileRecord {
	rec := domain.FileRecord{
		MessageID:  msg.MessageID,
		UploadTime: msg.Date.UTC(),
		ChannelID:  channelID,
	}
	if msg.Attachment != nil {
		rec.FileID = msg.Attachment.FileID
		rec.FileName = msg.Attachment.FileName
		rec.FileSize = msg.Attachment.FileSize
		rec.MimeType = msg.Attachment.MimeType
	}
	return rec
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
