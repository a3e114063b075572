package service

import (
	"context"
	"errors"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
	"golang.org/x/sync/singleflight"
)

// SyncReport summarizes one reconciliation run.
type SyncReport struct {
	Scanned    int `json:"scanned"`
	Added      int `json:"added"`
	Existing   int `json:"existing"`
	Tombstoned int `json:"tombstoned"`
	Dangling   int `json:"dangling"`
	Relisted   int `json:"relisted"`
}

// syncService merges transport history into the index. It never removes
// records that fell out of the history window.
type syncService struct {
	core  *FileServiceImpl
	group singleflight.Group
}

func newSyncService(core *FileServiceImpl) *syncService {
	return &syncService{core: core}
}

// run joins an in-flight reconciliation or starts one. The run is detached
// from the first caller's cancellation so joined callers still get a result.
func (s *syncService) run(ctx context.Context) (*SyncReport, error) {
	ch := s.group.DoChan("sync", func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.core.cfg.RequestTimeout())
		defer cancel()
		return s.reconcile(runCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		report := *res.Val.(*SyncReport)
		return &report, nil
	}
}

func (s *syncService) reconcile(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{}

	var history []port.Message
	err := s.core.readRetry(ctx, func(execCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(execCtx, s.core.transportTimeout())
		defer cancel()

		var err error
		history, err = s.core.transport.History(callCtx, s.core.cfg.Telegram.HistoryLimit)
		return err
	})
	if err != nil {
		metrics.Syncs.WithLabelValues("error").Inc()
		logger.Errorw("History sync failed", "error", err.Error())
		if !errors.Is(err, port.ErrDownloadFailed) {
			err = port.NewTransportError("getUpdates", port.ErrDownloadFailed, 0, err)
		}
		return nil, err
	}

	records, dangling, err := s.core.index.listRecords(ctx)
	if err != nil {
		metrics.Syncs.WithLabelValues("error").Inc()
		return nil, err
	}

	for _, id := range dangling {
		if err := s.core.index.removeRecord(ctx, id); err != nil {
			logger.Warnw("Failed to drop dangling list entry", "file_id", id, "error", err.Error())
			continue
		}
		report.Dangling++
	}

	byFile := make(map[string]struct{}, len(records))
	byMessage := make(map[int64]struct{}, len(records))
	for _, r := range records {
		byFile[r.FileID] = struct{}{}
		byMessage[r.MessageID] = struct{}{}
	}

	candidates := make([]port.Message, 0, len(history))
	messageIDs := make([]int64, 0, len(history))
	for _, msg := range history {
		if msg.Attachment == nil || msg.Attachment.FileID == "" {
			continue
		}
		candidates = append(candidates, msg)
		messageIDs = append(messageIDs, msg.MessageID)
	}
	report.Scanned = len(candidates)

	deleted, err := s.core.index.tombstoned(ctx, messageIDs)
	if err != nil {
		metrics.Syncs.WithLabelValues("error").Inc()
		return nil, err
	}

	channelID := s.core.transport.ChannelID()
	for _, msg := range candidates {
		if deleted[msg.MessageID] {
			report.Tombstoned++
			continue
		}
		_, knownFile := byFile[msg.Attachment.FileID]
		_, knownMessage := byMessage[msg.MessageID]
		if knownFile || knownMessage {
			report.Existing++
			continue
		}

		// A record may exist without a list entry; keep its short link.
		rec := recordFromMessage(msg, channelID)
		if existing, found, err := s.core.index.getRecord(ctx, rec.FileID); err == nil && found {
			rec = *existing
		}
		if err := s.core.index.addRecord(ctx, rec); err != nil {
			logger.Warnw("Failed to index synced message", "message_id", msg.MessageID, "error", err.Error())
			continue
		}
		byFile[rec.FileID] = struct{}{}
		byMessage[rec.MessageID] = struct{}{}
		report.Added++
	}

	relisted, err := s.relistOrphans(ctx, byFile)
	if err != nil {
		logger.Warnw("Orphan record scan failed", "error", err.Error())
	}
	report.Relisted = relisted

	metrics.Syncs.WithLabelValues("ok").Inc()
	metrics.SyncMerged.Add(float64(report.Added + report.Relisted))
	logger.Infow("History sync completed",
		"scanned", report.Scanned,
		"added", report.Added,
		"existing", report.Existing,
		"tombstoned", report.Tombstoned,
		"dangling", report.Dangling,
		"relisted", report.Relisted,
	)
	return report, nil
}

// relistOrphans puts records that lost their list entry back on the list.
func (s *syncService) relistOrphans(ctx context.Context, listed map[string]struct{}) (int, error) {
	ids, err := s.core.index.scanRecordIDs(ctx)
	if err != nil {
		return 0, err
	}

	relisted := 0
	for _, id := range ids {
		if _, ok := listed[id]; ok {
			continue
		}
		rec, found, err := s.core.index.getRecord(ctx, id)
		if err != nil || !found {
			continue
		}
		if rec.ChannelID != "" && rec.ChannelID != s.core.transport.ChannelID() {
			continue
		}
		if gone, err := s.core.index.isTombstoned(ctx, rec.MessageID); err != nil || gone {
			continue
		}
		if err := s.core.index.addRecord(ctx, *rec); err != nil {
			return relisted, err
		}
		relisted++
	}
	return relisted, nil
}

