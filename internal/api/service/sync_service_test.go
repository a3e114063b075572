package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
)

func TestSyncService_RebuildsEmptyIndex(t *testing.T) {
	svc, transport, _ := newTestFileService(t)
	ctx := context.Background()

	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		if _, err := transport.SendDocument(ctx, name, []byte(name)); err != nil {
			t.Fatalf("SendDocument() error = %v", err)
		}
	}

	records, err := svc.ListFiles(ctx, false)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(records) != 3 || records[0].FileName != "three.txt" {
		t.Fatalf("unexpected records after rebuild: %+v", records)
	}

	report, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Added != 0 || report.Existing != 3 || report.Scanned != 3 {
		t.Fatalf("second sync should be a no-op, got %+v", report)
	}

	ids, err := svc.index.listIDs(ctx)
	if err != nil {
		t.Fatalf("listIDs() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("list has %d entries, want 3", len(ids))
	}
}

func TestSyncService_KeepsExistingShortLink(t *testing.T) {
	svc, _, store := newTestFileService(t)
	ctx := context.Background()
	res := mustUpload(t, svc, "shared.txt", 4)

	rec, _, _ := svc.index.getRecord(ctx, res.FileID)
	rec.ShortLink = &domain.ShortLink{ShortID: "keepme01", CreatedAt: rec.UploadTime, ExpiresAt: rec.UploadTime.Add(time.Hour)}
	if err := svc.index.putRecord(ctx, *rec); err != nil {
		t.Fatalf("putRecord() error = %v", err)
	}
	// Lose the list entry so sync has to re-add the message.
	if _, err := store.ListRemove(ctx, listKey(testChannel), res.FileID); err != nil {
		t.Fatalf("ListRemove() error = %v", err)
	}

	report, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Added != 1 {
		t.Fatalf("Added = %d, want 1", report.Added)
	}
	got, found, _ := svc.index.getRecord(ctx, res.FileID)
	if !found || got.ShortLink == nil || got.ShortLink.ShortID != "keepme01" {
		t.Fatalf("sync dropped the short link: %+v", got)
	}
}

func TestSyncService_SkipsTombstonedMessages(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()
	res := mustUpload(t, svc, "deleted.txt", 4)

	// History still carries the post after a delete whose transport call raced.
	if err := svc.index.tombstone(ctx, res.MessageID); err != nil {
		t.Fatalf("tombstone() error = %v", err)
	}
	if err := svc.index.removeRecord(ctx, res.FileID); err != nil {
		t.Fatalf("removeRecord() error = %v", err)
	}

	report, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Tombstoned != 1 || report.Added != 0 {
		t.Fatalf("tombstoned message resurrected: %+v", report)
	}
}

func TestSyncService_RepairsListDrift(t *testing.T) {
	svc, _, store := newTestFileService(t)
	ctx := context.Background()

	if err := store.ListPush(ctx, listKey(testChannel), "ghost"); err != nil {
		t.Fatalf("ListPush() error = %v", err)
	}
	orphan := domain.FileRecord{FileID: "orphan", MessageID: 999, FileName: "orphan.txt", ChannelID: testChannel}
	if err := svc.index.putRecord(ctx, orphan); err != nil {
		t.Fatalf("putRecord() error = %v", err)
	}
	foreign := domain.FileRecord{FileID: "foreign", MessageID: 1000, FileName: "other.txt", ChannelID: "@elsewhere"}
	if err := svc.index.putRecord(ctx, foreign); err != nil {
		t.Fatalf("putRecord() error = %v", err)
	}

	report, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Dangling != 1 || report.Relisted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	ids, _ := svc.index.listIDs(ctx)
	if len(ids) != 1 || ids[0] != "orphan" {
		t.Fatalf("list = %v, want [orphan]", ids)
	}
}

func TestSyncService_RetriesTransientHistoryFailure(t *testing.T) {
	svc, transport, _ := newTestFileService(t)
	ctx := context.Background()
	if _, err := transport.SendDocument(ctx, "late.txt", []byte("x")); err != nil {
		t.Fatalf("SendDocument() error = %v", err)
	}

	var calls atomic.Int32
	transport.SetFailureHook(func(op string) error {
		if op == "getUpdates" && calls.Add(1) == 1 {
			return errors.New("connection reset")
		}
		return nil
	})

	report, err := svc.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Added != 1 || calls.Load() != 2 {
		t.Fatalf("report = %+v after %d history calls", report, calls.Load())
	}
}

func TestSyncService_HistoryFailureSurfaces(t *testing.T) {
	svc, transport, _ := newTestFileService(t)
	transport.SetFailureHook(func(op string) error {
		if op == "getUpdates" {
			return port.NewTransportError("getUpdates", port.ErrConfig, 401, errors.New("unauthorized"))
		}
		return nil
	})

	_, err := svc.ListFiles(context.Background(), true)
	if !errors.Is(err, port.ErrDownloadFailed) {
		t.Fatalf("ListFiles() error = %v, want ErrDownloadFailed", err)
	}
}
