package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/kv"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/loopback"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/pkg/idgen"
)

const testChannel = "@vault"

func newTestFileService(t *testing.T) (*FileServiceImpl, *loopback.Transport, *kv.MemoryStore) {
	t.Helper()

	ids, err := idgen.New(1, nil)
	if err != nil {
		t.Fatalf("idgen.New() error = %v", err)
	}
	transport := loopback.New(testChannel, ids)
	store := kv.NewMemoryStore(4)
	return NewFileService(config.DefaultConfig(), transport, store), transport, store
}

func mustUpload(t *testing.T, svc *FileServiceImpl, name string, size int) *port.UploadResult {
	t.Helper()
	res, err := svc.UploadFile(context.Background(), name, bytes.NewReader(bytes.Repeat([]byte("x"), size)))
	if err != nil {
		t.Fatalf("UploadFile(%s) error = %v", name, err)
	}
	return res
}

func TestFileService_UploadDownloadRoundTrip(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	content := bytes.Repeat([]byte{0x25, 0x50, 0x44, 0x46}, 512)
	res, err := svc.UploadFile(ctx, "report.pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if res.Record.FileName != "report.pdf" || res.Record.FileSize != 2048 {
		t.Fatalf("unexpected record: %+v", res.Record)
	}
	if res.Record.MimeType != "application/pdf" {
		t.Fatalf("MimeType = %q, want application/pdf", res.Record.MimeType)
	}
	if res.Record.ChannelID != testChannel || res.MessageID == 0 || res.FileID == "" {
		t.Fatalf("record not bound to the channel message: %+v", res.Record)
	}

	info, err := svc.GetFileInfo(ctx, res.FileID)
	if err != nil {
		t.Fatalf("GetFileInfo() error = %v", err)
	}
	if info.MessageID != res.MessageID {
		t.Fatalf("GetFileInfo().MessageID = %d, want %d", info.MessageID, res.MessageID)
	}

	var out bytes.Buffer
	if err := svc.DownloadFile(ctx, res.FileID, &out); err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if !bytes.Equal(out.Bytes(), content) {
		t.Fatalf("downloaded %d bytes, content mismatch", out.Len())
	}

	url, err := svc.DownloadURL(ctx, res.FileID)
	if err != nil || url == "" {
		t.Fatalf("DownloadURL() = %q, %v", url, err)
	}
}

func TestFileService_UploadRejectsBadContent(t *testing.T) {
	svc, transport, _ := newTestFileService(t)
	svc.cfg.App.MaxFileSize = 16

	tests := []struct {
		name    string
		content []byte
		wantErr error
	}{
		{name: "empty", content: nil, wantErr: port.ErrInvalidInput},
		{name: "too large", content: bytes.Repeat([]byte("a"), 17), wantErr: port.ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadFile(context.Background(), "a.txt", bytes.NewReader(tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UploadFile() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	history, _ := transport.History(context.Background(), 100)
	if len(history) != 0 {
		t.Fatalf("rejected uploads reached the transport: %d posts", len(history))
	}
}

func TestFileService_ListFilesNewestFirst(t *testing.T) {
	svc, _, _ := newTestFileService(t)

	var want []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		want = append([]string{mustUpload(t, svc, name, 10).FileID}, want...)
	}

	records, err := svc.ListFiles(context.Background(), false)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(records) != len(want) {
		t.Fatalf("ListFiles() returned %d records, want %d", len(records), len(want))
	}
	for i, r := range records {
		if r.FileID != want[i] {
			t.Fatalf("records[%d] = %s, want %s", i, r.FileID, want[i])
		}
	}
	if sum := domain.Summarize(records); sum.TotalSize != 30 {
		t.Fatalf("TotalSize = %d, want 30", sum.TotalSize)
	}
}

func TestFileService_DeleteConsistency(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()
	res := mustUpload(t, svc, "notes.txt", 64)

	if err := svc.DeleteFile(ctx, res.MessageID); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if err := svc.DeleteFile(ctx, res.MessageID); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("second DeleteFile() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetFileInfo(ctx, res.FileID); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("GetFileInfo() after delete error = %v, want ErrNotFound", err)
	}
	if err := svc.DownloadFile(ctx, res.FileID, &bytes.Buffer{}); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("DownloadFile() after delete error = %v, want ErrNotFound", err)
	}

	records, err := svc.ListFiles(ctx, true)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("deleted file still listed: %+v", records)
	}
}

func TestFileService_DeleteHealsLeftoverIndex(t *testing.T) {
	svc, transport, _ := newTestFileService(t)
	ctx := context.Background()
	res := mustUpload(t, svc, "stale.bin", 8)

	// The message disappears without the service noticing.
	if err := transport.DeleteMessage(ctx, res.MessageID); err != nil {
		t.Fatalf("transport.DeleteMessage() error = %v", err)
	}

	if err := svc.DeleteFile(ctx, res.MessageID); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("DeleteFile() error = %v, want ErrNotFound", err)
	}
	if _, found, _ := svc.index.getRecord(ctx, res.FileID); found {
		t.Fatalf("leftover record was not removed")
	}
}

func TestFileService_DeleteTransportFailureKeepsIndex(t *testing.T) {
	svc, transport, _ := newTestFileService(t)
	ctx := context.Background()
	res := mustUpload(t, svc, "keep.bin", 8)

	transport.SetFailureHook(func(op string) error {
		if op == "deleteMessage" {
			return errors.New("connection reset")
		}
		return nil
	})

	err := svc.DeleteFile(ctx, res.MessageID)
	if !errors.Is(err, port.ErrDeleteFailed) {
		t.Fatalf("DeleteFile() error = %v, want ErrDeleteFailed", err)
	}
	if _, err := svc.GetFileInfo(ctx, res.FileID); err != nil {
		t.Fatalf("record should survive a failed delete: %v", err)
	}
}

func TestFileService_GetFileInfoSyncsOnMiss(t *testing.T) {
	svc, transport, _ := newTestFileService(t)
	ctx := context.Background()

	msg, err := transport.SendDocument(ctx, "posted-elsewhere.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("SendDocument() error = %v", err)
	}

	rec, err := svc.GetFileInfo(ctx, msg.Attachment.FileID)
	if err != nil {
		t.Fatalf("GetFileInfo() error = %v", err)
	}
	if rec.FileName != "posted-elsewhere.txt" || rec.MessageID != msg.MessageID {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if _, err := svc.GetFileInfo(ctx, "missing"); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("GetFileInfo(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFileService_TombstonedRecordIsHidden(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()
	res := mustUpload(t, svc, "ghost.txt", 4)

	if err := svc.index.tombstone(ctx, res.MessageID); err != nil {
		t.Fatalf("tombstone() error = %v", err)
	}

	records, err := svc.liveRecords(ctx)
	if err != nil {
		t.Fatalf("liveRecords() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("tombstoned record listed: %+v", records)
	}
	if _, err := svc.GetFileInfo(ctx, res.FileID); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("GetFileInfo() error = %v, want ErrNotFound", err)
	}
	if _, found, _ := svc.index.getRecord(ctx, res.FileID); found {
		t.Fatalf("tombstoned record should be dropped on lookup")
	}
}
