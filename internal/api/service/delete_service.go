package service

import (
	"context"
	"errors"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
)

// deleteService removes channel messages and then their index entries.
type deleteService struct {
	core *FileServiceImpl
}

func newDeleteService(core *FileServiceImpl) *deleteService {
	return &deleteService{core: core}
}

// deleteFile deletes the message first. Index cleanup is best-effort and
// also runs when the message was already gone, so a repeated delete heals
// leftovers before reporting NotFound.
func (s *deleteService) deleteFile(ctx context.Context, messageID int64) error {
	callCtx, cancel := context.WithTimeout(ctx, s.core.transportTimeout())
	err := s.core.transport.DeleteMessage(callCtx, messageID)
	cancel()

	if err != nil && !errors.Is(err, port.ErrNotFound) {
		logger.Warnw("Delete failed", "message_id", messageID, "error", err.Error())
		if !errors.Is(err, port.ErrDeleteFailed) {
			err = port.NewTransportError("deleteMessage", port.ErrDeleteFailed, 0, err)
		}
		return err
	}

	s.cleanupIndex(ctx, messageID)

	if err != nil {
		logger.Infow("Delete target already gone", "message_id", messageID)
		return err
	}
	logger.Infow("Delete completed", "message_id", messageID)
	return nil
}

func (s *deleteService) cleanupIndex(ctx context.Context, messageID int64) {
	if err := s.core.index.tombstone(ctx, messageID); err != nil {
		logger.Warnw("Tombstone write failed", "message_id", messageID, "error", err.Error())
	}

	rec, err := s.core.index.findByMessageID(ctx, messageID)
	if err != nil {
		logger.Warnw("Index lookup failed during delete cleanup", "message_id", messageID, "error", err.Error())
		return
	}
	if rec == nil {
		return
	}
	if err := s.core.index.removeRecord(ctx, rec.FileID); err != nil {
		logger.Warnw("Index cleanup failed", "message_id", messageID, "file_id", rec.FileID, "error", err.Error())
	}
}
