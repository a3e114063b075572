package http_handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/kv"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/loopback"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/queue"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/service"
	"github.com/anthanhphan/go-channel-file-storage/pkg/idgen"
	"github.com/anthanhphan/go-channel-file-storage/pkg/netmon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type onlineNetwork struct{}

func (onlineNetwork) Status() netmon.Status {
	return netmon.Status{IsOnline: true, Quality: netmon.QualityGood, SuccessRate: 1}
}

type memoryTasks struct {
	mu   sync.Mutex
	data []byte
}

func (m *memoryTasks) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memoryTasks) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

type testEnv struct {
	server *Server
	queue  *queue.DeleteQueue
}

func newTestEnv(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	if tweak != nil {
		tweak(cfg)
	}
	ids, err := idgen.New(1, nil)
	require.NoError(t, err)

	files := service.NewFileService(cfg, loopback.New("@vault", ids), kv.NewMemoryStore(4))
	links := service.NewLinkService(cfg, files)
	q := queue.New(queue.Config{MaxRetries: 3, AttemptTimeout: time.Second}, files, &memoryTasks{}, onlineNetwork{})
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(q.Stop)

	return &testEnv{
		server: NewServer(cfg, files, links, q, onlineNetwork{}),
		queue:  q,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.server.App().Test(req, 5000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, body
}

type uploadResponse struct {
	FileID    string `json:"fileId"`
	MessageID int64  `json:"messageId"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
}

func (e *testEnv) upload(t *testing.T, name string, content []byte) uploadResponse {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := e.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out uploadResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func jsonRequest(method, target string, payload any) *http.Request {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestServer_UploadListDownload(t *testing.T) {
	env := newTestEnv(t, nil)
	content := []byte("hello from the channel")

	up := env.upload(t, "greeting.txt", content)
	fileID := up.FileID
	assert.Equal(t, "greeting.txt", up.FileName)
	assert.Equal(t, int64(len(content)), up.FileSize)
	assert.NotZero(t, up.MessageID)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/files", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Files     []map[string]any `json:"files"`
		Count     int              `json:"count"`
		TotalSize int64            `json:"totalSize"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, int64(len(content)), list.TotalSize)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/files/metadata?id="+fileID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"fileName":"greeting.txt"`)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/files/download?id="+fileID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, body)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="greeting.txt"`)
}

func TestServer_UploadValidation(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.App.MaxFileSize = 8 })

	req := httptest.NewRequest(http.MethodPost, "/files", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "text/plain")
	resp, _ := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "big.bin")
	_, _ = fw.Write(bytes.Repeat([]byte("z"), 9))
	_ = mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, _ = env.do(t, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestServer_ShareLinkDownload(t *testing.T) {
	env := newTestEnv(t, nil)
	content := bytes.Repeat([]byte{0x25}, 2048)
	fileID := env.upload(t, "report.pdf", content).FileID

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/links", map[string]any{"fileId": fileID, "expiresIn": 600}))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var issued port.IssueResult
	require.NoError(t, json.Unmarshal(body, &issued))
	assert.False(t, issued.IsExisting)
	assert.Equal(t, int64(600), issued.ExpiresIn)
	assert.True(t, strings.HasSuffix(issued.URL, "/files/download?s="+issued.ShortID))

	resp, body = env.do(t, jsonRequest(http.MethodPost, "/links", map[string]any{"fileId": fileID}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again port.IssueResult
	require.NoError(t, json.Unmarshal(body, &again))
	assert.True(t, again.IsExisting)
	assert.Equal(t, issued.ShortID, again.ShortID)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/files/download?s="+issued.ShortID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, body)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/files/download?s=unknown1", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_DirectDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	up := env.upload(t, "gone.txt", []byte("bye"))
	target := fmt.Sprintf("/files?message_id=%d", up.MessageID)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodDelete, target, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, target, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/files/metadata?id="+up.FileID, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/files?message_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_QueuedDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	fileID := env.upload(t, "later.txt", []byte("queued")).FileID

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/files/delete-queue", map[string]string{"fileId": fileID}))
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"taskId"`)

	require.Eventually(t, func() bool { return env.queue.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/files/delete-queue", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"hint":"deleted"`)

	resp, _ = env.do(t, jsonRequest(http.MethodPost, "/files/delete-queue", map[string]string{"fileId": "missing"}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_OperationalEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ok")

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/network", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"isOnline":true`)
	assert.Contains(t, string(body), `"quality":"good"`)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cfs_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: port.ErrNotFound, want: http.StatusNotFound},
		{err: fmt.Errorf("short link x: %w", port.ErrExpired), want: http.StatusGone},
		{err: port.ErrTooLarge, want: http.StatusRequestEntityTooLarge},
		{err: port.ErrInvalidInput, want: http.StatusBadRequest},
		{err: port.ErrConfig, want: http.StatusInternalServerError},
		{err: fmt.Errorf("%w: deadline", port.ErrTimeout), want: http.StatusGatewayTimeout},
		{err: port.NewTransportError("sendDocument", port.ErrUploadFailed, 500, errors.New("boom")), want: http.StatusBadGateway},
		{err: port.NewTransportError("getFile", port.ErrNotFound, 400, errors.New("wrong file_id")), want: http.StatusNotFound},
		{err: errors.New("unexpected"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition(`bá"d.txt`)
	assert.Equal(t, `attachment; filename="b__d.txt"; filename*=UTF-8''b%C3%A1%22d.txt`, got)
}
