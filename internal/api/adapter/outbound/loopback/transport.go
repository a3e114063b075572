package loopback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/pkg/idgen"
	"github.com/google/uuid"
)

const urlScheme = "loopback://files/"

type storedPost struct {
	msg     port.Message
	content []byte
}

// Transport keeps channel posts in process memory. It backs local runs
// without bot credentials and end-to-end tests.
type Transport struct {
	channelID string
	ids       *idgen.Generator

	mu     sync.RWMutex
	posts  map[int64]*storedPost
	byFile map[string]int64
	fail   func(op string) error
}

var _ port.Transport = (*Transport)(nil)

func New(channelID string, ids *idgen.Generator) *Transport {
	return &Transport{
		channelID: channelID,
		ids:       ids,
		posts:     make(map[int64]*storedPost),
		byFile:    make(map[string]int64),
	}
}

// SetFailureHook injects errors per operation name. A nil return lets the call through.
func (t *Transport) SetFailureHook(fn func(op string) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = fn
}

func (t *Transport) injected(op string) error {
	t.mu.RLock()
	fn := t.fail
	t.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

func (t *Transport) ChannelID() string {
	return t.channelID
}

func (t *Transport) SendDocument(ctx context.Context, fileName string, content []byte) (*port.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, port.NewTransportError("sendDocument", port.ErrUploadFailed, 0, err)
	}
	if err := t.injected("sendDocument"); err != nil {
		return nil, port.NewTransportError("sendDocument", port.ErrUploadFailed, 0, err)
	}

	id, err := t.ids.Next()
	if err != nil {
		return nil, port.NewTransportError("sendDocument", port.ErrUploadFailed, 0, err)
	}

	msg := port.Message{
		MessageID: id,
		ChannelID: t.channelID,
		Date:      idgen.Time(id),
		Attachment: &port.Attachment{
			FileID:   strings.ReplaceAll(uuid.NewString(), "-", ""),
			FileName: fileName,
			MimeType: detectMimeType(fileName, content),
			FileSize: int64(len(content)),
		},
	}

	data := make([]byte, len(content))
	copy(data, content)

	t.mu.Lock()
	t.posts[id] = &storedPost{msg: msg, content: data}
	t.byFile[msg.Attachment.FileID] = id
	t.mu.Unlock()

	out := msg
	att := *msg.Attachment
	out.Attachment = &att
	return &out, nil
}

func (t *Transport) FileURL(ctx context.Context, fileID string) (string, error) {
	if err := t.injected("getFile"); err != nil {
		return "", port.NewTransportError("getFile", port.ErrDownloadFailed, 0, err)
	}

	t.mu.RLock()
	_, ok := t.byFile[fileID]
	t.mu.RUnlock()
	if !ok {
		return "", port.NewTransportError("getFile", port.ErrNotFound, 400, fmt.Errorf("file %s not found", fileID))
	}
	return urlScheme + fileID, nil
}

func (t *Transport) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	if err := t.injected("fetch"); err != nil {
		return 0, port.NewTransportError("fetch", port.ErrDownloadFailed, 0, err)
	}
	if !strings.HasPrefix(url, urlScheme) {
		return 0, port.NewTransportError("fetch", port.ErrDownloadFailed, 0, fmt.Errorf("unsupported url %q", url))
	}
	fileID := strings.TrimPrefix(url, urlScheme)

	t.mu.RLock()
	id, ok := t.byFile[fileID]
	var content []byte
	if ok {
		content = t.posts[id].content
	}
	t.mu.RUnlock()
	if !ok {
		return 0, port.NewTransportError("fetch", port.ErrNotFound, 404, fmt.Errorf("file %s not found", fileID))
	}

	n, err := io.Copy(w, bytes.NewReader(content))
	if err != nil {
		return n, port.NewTransportError("fetch", port.ErrDownloadFailed, 0, err)
	}
	return n, nil
}

func (t *Transport) DeleteMessage(ctx context.Context, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return port.NewTransportError("deleteMessage", port.ErrDeleteFailed, 0, err)
	}
	if err := t.injected("deleteMessage"); err != nil {
		return port.NewTransportError("deleteMessage", port.ErrDeleteFailed, 0, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	post, ok := t.posts[messageID]
	if !ok {
		return port.NewTransportError("deleteMessage", port.ErrNotFound, 400,
			fmt.Errorf("message to delete not found"))
	}
	delete(t.posts, messageID)
	if post.msg.Attachment != nil {
		delete(t.byFile, post.msg.Attachment.FileID)
	}
	return nil
}

// History returns the newest limit posts, oldest first, like a getUpdates window.
func (t *Transport) History(ctx context.Context, limit int) ([]port.Message, error) {
	if err := t.injected("getUpdates"); err != nil {
		return nil, port.NewTransportError("getUpdates", port.ErrDownloadFailed, 0, err)
	}

	t.mu.RLock()
	out := make([]port.Message, 0, len(t.posts))
	for _, p := range t.posts {
		msg := p.msg
		if msg.Attachment != nil {
			att := *msg.Attachment
			msg.Attachment = &att
		}
		out = append(out, msg)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func detectMimeType(fileName string, content []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(content)
}
