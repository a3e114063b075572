package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
)

// tombstoneTTL outlives any history window the transport can return.
const tombstoneTTL = 7 * 24 * time.Hour

// indexStore maps FileRecords onto the KV index: one JSON value per record
// plus a per-channel id list. Every write replaces a whole record.
type indexStore struct {
	kv        port.KVStore
	channelID string
}

func newIndexStore(kv port.KVStore, channelID string) *indexStore {
	return &indexStore{kv: kv, channelID: channelID}
}

func (s *indexStore) getRecord(ctx context.Context, fileID string) (*domain.FileRecord, bool, error) {
	raw, found, err := s.kv.Get(ctx, recordKey(fileID))
	if err != nil {
		return nil, false, fmt.Errorf("read record %s: %w", fileID, err)
	}
	if !found {
		return nil, false, nil
	}

	var rec domain.FileRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logger.Warnw("Discarding unreadable index record", "file_id", fileID, "error", err.Error())
		return nil, false, nil
	}
	return &rec, true, nil
}

// putRecord replaces the record value without touching the id list.
func (s *indexStore) putRecord(ctx context.Context, rec domain.FileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.FileID, err)
	}
	if err := s.kv.Set(ctx, recordKey(rec.FileID), string(data), 0); err != nil {
		return fmt.Errorf("write record %s: %w", rec.FileID, err)
	}
	return nil
}

// addRecord writes the record and moves its id to the head of the list.
func (s *indexStore) addRecord(ctx context.Context, rec domain.FileRecord) error {
	if err := s.putRecord(ctx, rec); err != nil {
		return err
	}
	if _, err := s.kv.ListRemove(ctx, listKey(s.channelID), rec.FileID); err != nil {
		return fmt.Errorf("dedupe list entry %s: %w", rec.FileID, err)
	}
	if err := s.kv.ListPush(ctx, listKey(s.channelID), rec.FileID); err != nil {
		return fmt.Errorf("push list entry %s: %w", rec.FileID, err)
	}
	return nil
}

func (s *indexStore) removeRecord(ctx context.Context, fileID string) error {
	if _, err := s.kv.ListRemove(ctx, listKey(s.channelID), fileID); err != nil {
		return fmt.Errorf("remove list entry %s: %w", fileID, err)
	}
	if err := s.kv.Delete(ctx, recordKey(fileID)); err != nil {
		return fmt.Errorf("delete record %s: %w", fileID, err)
	}
	return nil
}

func (s *indexStore) listIDs(ctx context.Context) ([]string, error) {
	ids, err := s.kv.ListRange(ctx, listKey(s.channelID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	return ids, nil
}

// listRecords loads every listed record. ids whose record is gone are returned as dangling.
func (s *indexStore) listRecords(ctx context.Context) ([]domain.FileRecord, []string, error) {
	ids, err := s.listIDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return []domain.FileRecord{}, nil, nil
	}

	seen := make(map[string]struct{}, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, recordKey(id))
	}

	values, err := s.kv.GetMany(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("read records: %w", err)
	}

	records := make([]domain.FileRecord, 0, len(keys))
	var dangling []string
	for _, key := range keys {
		id := strings.TrimPrefix(key, recordKeyPrefix)
		raw, ok := values[key]
		if !ok {
			dangling = append(dangling, id)
			continue
		}
		var rec domain.FileRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logger.Warnw("Discarding unreadable index record", "file_id", id, "error", err.Error())
			dangling = append(dangling, id)
			continue
		}
		records = append(records, rec)
	}
	return records, dangling, nil
}

func (s *indexStore) findByMessageID(ctx context.Context, messageID int64) (*domain.FileRecord, error) {
	records, _, err := s.listRecords(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].MessageID == messageID {
			return &records[i], nil
		}
	}
	return nil, nil
}

// scanRecordIDs enumerates every record key, listed or not.
func (s *indexStore) scanRecordIDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Scan(ctx, recordKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, recordKeyPrefix))
	}
	return ids, nil
}

func (s *indexStore) tombstone(ctx context.Context, messageID int64) error {
	if err := s.kv.Set(ctx, tombstoneKey(messageID), "1", tombstoneTTL); err != nil {
		return fmt.Errorf("write tombstone %d: %w", messageID, err)
	}
	return nil
}

func (s *indexStore) isTombstoned(ctx context.Context, messageID int64) (bool, error) {
	_, found, err := s.kv.Get(ctx, tombstoneKey(messageID))
	if err != nil {
		return false, fmt.Errorf("read tombstone %d: %w", messageID, err)
	}
	return found, nil
}

// tombstoned returns the subset of messageIDs that were deleted.
func (s *indexStore) tombstoned(ctx context.Context, messageIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(messageIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(messageIDs))
	for i, id := range messageIDs {
		keys[i] = tombstoneKey(id)
	}
	values, err := s.kv.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read tombstones: %w", err)
	}
	for i, id := range messageIDs {
		if _, ok := values[keys[i]]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *indexStore) getLegacyLink(ctx context.Context, shortID string) (*domain.LegacyShortLink, bool, error) {
	raw, found, err := s.kv.Get(ctx, legacyLinkKey(shortID))
	if err != nil {
		return nil, false, fmt.Errorf("read legacy link %s: %w", shortID, err)
	}
	if !found {
		return nil, false, nil
	}
	var link domain.LegacyShortLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, false, fmt.Errorf("decode legacy link %s: %w", shortID, err)
	}
	return &link, true, nil
}

func (s *indexStore) putLegacyLink(ctx context.Context, shortID string, link domain.LegacyShortLink, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode legacy link %s: %w", shortID, err)
	}
	return s.kv.Set(ctx, legacyLinkKey(shortID), string(data), ttl)
}

func (s *indexStore) scanLegacyLinks(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Scan(ctx, legacyLinkPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan legacy links: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, legacyLinkPrefix))
	}
	return ids, nil
}
