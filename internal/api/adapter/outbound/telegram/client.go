package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/valyala/fasthttp"
)

const (
	methodSendDocument  = "sendDocument"
	methodGetFile       = "getFile"
	methodDeleteMessage = "deleteMessage"
	methodGetUpdates    = "getUpdates"
	methodFetch         = "fetch"

	maxHistoryLimit = 100
)

// Client talks to the Telegram Bot API and posts every file to one channel.
type Client struct {
	apiBase   string
	token     string
	channelID string
	timeout   time.Duration

	http     *fasthttp.Client
	download *fasthttp.Client

	breakers map[string]*resilience.CircuitBreaker
	observer func(name string, from, to resilience.CircuitBreakerState)
	mu       sync.RWMutex
}

var _ port.Transport = (*Client)(nil)

var errMalformed = errors.New("malformed telegram response")

// NewClient builds a Bot API client. apiBase has no trailing slash, e.g. https://api.telegram.org.
func NewClient(apiBase, token, channelID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		apiBase:   strings.TrimRight(apiBase, "/"),
		token:     token,
		channelID: channelID,
		timeout:   timeout,
		http: &fasthttp.Client{
			Name:                "go-channel-file-storage",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 30 * time.Second,
		},
		download: &fasthttp.Client{
			Name:               "go-channel-file-storage",
			StreamResponseBody: true,
		},
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

// SetBreakerObserver registers a hook for circuit state changes. Call before first use.
func (c *Client) SetBreakerObserver(fn func(name string, from, to resilience.CircuitBreakerState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

func (c *Client) ChannelID() string {
	return c.channelID
}

func (c *Client) SendDocument(ctx context.Context, fileName string, content []byte) (*port.Message, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	if err := form.WriteField("chat_id", c.channelID); err != nil {
		return nil, port.NewTransportError(methodSendDocument, port.ErrUploadFailed, 0, err)
	}
	part, err := form.CreateFormFile("document", fileName)
	if err != nil {
		return nil, port.NewTransportError(methodSendDocument, port.ErrUploadFailed, 0, err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, port.NewTransportError(methodSendDocument, port.ErrUploadFailed, 0, err)
	}
	if err := form.Close(); err != nil {
		return nil, port.NewTransportError(methodSendDocument, port.ErrUploadFailed, 0, err)
	}

	var msg message
	if err := c.call(ctx, methodSendDocument, port.ErrUploadFailed, form.FormDataContentType(), body.Bytes(), &msg); err != nil {
		return nil, err
	}

	out := msg.toPort()
	if out.Attachment == nil {
		return nil, port.NewTransportError(methodSendDocument, port.ErrUploadFailed, 0,
			errors.New("response message carries no attachment"))
	}
	return &out, nil
}

func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return "", port.NewTransportError(methodGetFile, port.ErrDownloadFailed, 0, err)
	}

	var f fileObject
	if err := c.call(ctx, methodGetFile, port.ErrDownloadFailed, "application/json", payload, &f); err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", port.NewTransportError(methodGetFile, port.ErrNotFound, 0, errors.New("file path unavailable"))
	}
	return fmt.Sprintf("%s/file/bot%s/%s", c.apiBase, c.token, f.FilePath), nil
}

func (c *Client) Fetch(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	var written int64
	err := c.getBreaker(methodFetch).Execute(ctx, func(execCtx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(fileURL)
		req.Header.SetMethod(fasthttp.MethodGet)

		if err := c.download.DoDeadline(req, resp, c.deadline(execCtx)); err != nil {
			return normalizeHTTPErr(execCtx, err)
		}
		if resp.StatusCode() != fasthttp.StatusOK {
			return &statusError{code: resp.StatusCode()}
		}

		cw := &countingWriter{w: w}
		if err := resp.BodyWriteTo(cw); err != nil {
			return normalizeHTTPErr(execCtx, err)
		}
		written = cw.n
		return nil
	})
	if err != nil {
		return written, c.wrapErr(methodFetch, port.ErrDownloadFailed, err)
	}
	return written, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID int64) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":    c.channelID,
		"message_id": messageID,
	})
	if err != nil {
		return port.NewTransportError(methodDeleteMessage, port.ErrDeleteFailed, 0, err)
	}

	var ok bool
	return c.call(ctx, methodDeleteMessage, port.ErrDeleteFailed, "application/json", payload, &ok)
}

func (c *Client) History(ctx context.Context, limit int) ([]port.Message, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	payload, err := json.Marshal(map[string]interface{}{
		"limit":           limit,
		"allowed_updates": []string{"channel_post"},
	})
	if err != nil {
		return nil, port.NewTransportError(methodGetUpdates, port.ErrDownloadFailed, 0, err)
	}

	var updates []update
	if err := c.call(ctx, methodGetUpdates, port.ErrDownloadFailed, "application/json", payload, &updates); err != nil {
		return nil, err
	}

	out := make([]port.Message, 0, len(updates))
	for _, u := range updates {
		if u.ChannelPost == nil || !u.ChannelPost.Chat.belongsTo(c.channelID) {
			continue
		}
		out = append(out, u.ChannelPost.toPort())
	}
	return out, nil
}

// call posts a Bot API method and decodes the result into dst.
func (c *Client) call(ctx context.Context, method string, kind error, contentType string, body []byte, dst interface{}) error {
	err := c.getBreaker(method).Execute(ctx, func(execCtx context.Context) error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(c.methodURL(method))
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType(contentType)
		req.SetBody(body)

		if err := c.http.DoDeadline(req, resp, c.deadline(execCtx)); err != nil {
			return normalizeHTTPErr(execCtx, err)
		}

		var env apiResponse
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			if resp.StatusCode() >= fasthttp.StatusInternalServerError {
				return &statusError{code: resp.StatusCode()}
			}
			return fmt.Errorf("%w: %s response: %v", errMalformed, method, err)
		}
		if !env.OK {
			apiErr := &apiError{code: env.ErrorCode, description: env.Description}
			if apiErr.code == 0 {
				apiErr.code = resp.StatusCode()
			}
			if env.Parameters != nil {
				apiErr.retryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
			}
			return apiErr
		}
		if dst == nil {
			return nil
		}
		if err := json.Unmarshal(env.Result, dst); err != nil {
			return fmt.Errorf("%w: %s result: %v", errMalformed, method, err)
		}
		return nil
	})
	if err != nil {
		return c.wrapErr(method, kind, err)
	}
	return nil
}

// breakerFailure counts transport faults only. A well-formed rejection
// (4xx other than 429) or an unreadable body means the API is reachable.
func breakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errMalformed) {
		return false
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == fasthttp.StatusTooManyRequests || se.code >= fasthttp.StatusInternalServerError
	}
	return true
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, url.PathEscape(c.token), method)
}

// deadline is the earlier of the context deadline and the client timeout.
func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// wrapErr maps a raw failure onto a TransportError with a stable kind.
func (c *Client) wrapErr(method string, kind error, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		if apiErr.notFound() {
			kind = port.ErrNotFound
		}
		te := port.NewTransportError(method, kind, apiErr.code, err)
		te.RetryAfter = apiErr.retryAfter
		logger.Warnw("Telegram API rejected request", "method", method, "code", apiErr.code, "description", apiErr.description)
		return te
	}

	var se *statusError
	if errors.As(err, &se) {
		if se.code == fasthttp.StatusNotFound {
			kind = port.ErrNotFound
		}
		logger.Warnw("Telegram request failed", "method", method, "status", se.code)
		return port.NewTransportError(method, kind, se.code, err)
	}

	var openErr *resilience.CircuitOpenError
	if errors.As(err, &openErr) {
		logger.Warnw("Telegram request short-circuited", "method", method, "retry_after", openErr.RetryAfter.String())
		te := port.NewTransportError(method, kind, 0, err)
		te.RetryAfter = openErr.RetryAfter
		return te
	}

	if !errors.Is(err, context.Canceled) {
		logger.Warnw("Telegram request failed", "method", method, "error", err.Error())
	}
	return port.NewTransportError(method, kind, 0, err)
}

func (c *Client) getBreaker(method string) *resilience.CircuitBreaker {
	c.mu.RLock()
	cb, ok := c.breakers[method]
	c.mu.RUnlock()
	if ok {
		return cb
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok = c.breakers[method]; ok {
		return cb
	}
	cb = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:              "telegram." + method,
		FailureThreshold:  5,
		SuccessThreshold:  1,
		OpenTimeout:       15 * time.Second,
		HalfOpenMaxFlight: 1,
		IsFailure:         breakerFailure,
		OnStateChange:     c.observer,
	})
	c.breakers[method] = cb
	return cb
}

// apiError is an ok=false envelope.
type apiError struct {
	code        int
	description string
	retryAfter  time.Duration
}

func (e *apiError) Error() string {
	return "telegram api error " + strconv.Itoa(e.code) + ": " + e.description
}

func (e *apiError) retryable() bool {
	return e.code == fasthttp.StatusTooManyRequests || e.code >= fasthttp.StatusInternalServerError
}

func (e *apiError) notFound() bool {
	d := strings.ToLower(e.description)
	return e.code == fasthttp.StatusNotFound ||
		strings.Contains(d, "not found") ||
		strings.Contains(d, "invalid file_id") ||
		strings.Contains(d, "wrong file_id")
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected http status " + strconv.Itoa(e.code)
}

// normalizeHTTPErr folds fasthttp and context timeouts into port.ErrTimeout.
func normalizeHTTPErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", port.ErrTimeout, err)
	}
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
