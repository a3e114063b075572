package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	shortIDLength   = 8
	shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// LinkServiceImpl mints and resolves share links embedded in file records.
type LinkServiceImpl struct {
	cfg   *config.Config
	files *FileServiceImpl
	index *indexStore
	now   func() time.Time

	// mu serializes read-modify-write cycles on records within this process.
	mu sync.Mutex
}

var _ port.LinkService = (*LinkServiceImpl)(nil)

func NewLinkService(cfg *config.Config, files *FileServiceImpl) *LinkServiceImpl {
	return &LinkServiceImpl{
		cfg:   cfg,
		files: files,
		index: files.index,
		now:   time.Now,
	}
}

// Issue returns the active link for fileID, or mints one valid for ttl.
// ttl <= 0 uses the configured default; longer than the maximum is clamped.
func (s *LinkServiceImpl) Issue(ctx context.Context, fileID string, ttl time.Duration) (*port.IssueResult, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, fmt.Errorf("%w: file id is required", port.ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = s.cfg.DefaultLinkTTL()
	}
	if maxTTL := s.cfg.MaxLinkTTL(); ttl > maxTTL {
		ttl = maxTTL
	}

	if _, err := s.files.GetFileInfo(ctx, fileID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found, err := s.index.getRecord(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("file %s: %w", fileID, port.ErrNotFound)
	}

	now := s.now().UTC()
	if rec.ShortLink.Active(now) {
		return s.result(rec.ShortLink, now, true), nil
	}

	shortID, err := newShortID()
	if err != nil {
		return nil, err
	}
	rec.ShortLink = &domain.ShortLink{
		ShortID:   shortID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.index.putRecord(ctx, *rec); err != nil {
		return nil, err
	}

	logger.Infow("Short link issued", "file_id", fileID, "short_id", shortID, "expires_at", rec.ShortLink.ExpiresAt)
	return s.result(rec.ShortLink, now, false), nil
}

func (s *LinkServiceImpl) result(link *domain.ShortLink, now time.Time, existing bool) *port.IssueResult {
	return &port.IssueResult{
		ShortID:    link.ShortID,
		URL:        s.ShortURL(link.ShortID),
		ExpiresAt:  link.ExpiresAt,
		ExpiresIn:  int64(link.ExpiresAt.Sub(now).Seconds()),
		IsExisting: existing,
	}
}

// ShortURL is the public address that resolves shortID.
func (s *LinkServiceImpl) ShortURL(shortID string) string {
	base := strings.TrimRight(s.cfg.Server.PublicURL, "/")
	return base + "/files/download?s=" + url.QueryEscape(shortID)
}

// Resolve maps shortID to a file id, counting the access. Embedded links are
// checked first, then legacy keys when the fallback is enabled. An expired
// embedded link is cleared, so a second resolve reports NotFound.
func (s *LinkServiceImpl) Resolve(ctx context.Context, shortID string) (string, error) {
	shortID = strings.TrimSpace(shortID)
	if shortID == "" {
		return "", fmt.Errorf("short link: %w", port.ErrNotFound)
	}

	records, err := s.files.ListFiles(ctx, false)
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if r.ShortLink != nil && r.ShortLink.ShortID == shortID {
			return s.resolveEmbedded(ctx, r.FileID, shortID)
		}
	}

	if s.cfg.Links.LegacyFallback {
		return s.resolveLegacy(ctx, shortID)
	}
	metrics.LinkResolutions.WithLabelValues("not_found").Inc()
	return "", fmt.Errorf("short link %s: %w", shortID, port.ErrNotFound)
}

func (s *LinkServiceImpl) resolveEmbedded(ctx context.Context, fileID, shortID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found, err := s.index.getRecord(ctx, fileID)
	if err != nil {
		return "", err
	}
	if !found || rec.ShortLink == nil || rec.ShortLink.ShortID != shortID {
		metrics.LinkResolutions.WithLabelValues("not_found").Inc()
		return "", fmt.Errorf("short link %s: %w", shortID, port.ErrNotFound)
	}

	now := s.now().UTC()
	if !rec.ShortLink.Active(now) {
		rec.ShortLink = nil
		if err := s.index.putRecord(ctx, *rec); err != nil {
			logger.Warnw("Failed to clear expired short link", "file_id", fileID, "short_id", shortID, "error", err.Error())
		}
		metrics.LinkResolutions.WithLabelValues("expired").Inc()
		return "", fmt.Errorf("short link %s: %w", shortID, port.ErrExpired)
	}

	rec.ShortLink.AccessCount++
	rec.ShortLink.LastAccessAt = &now
	if err := s.index.putRecord(ctx, *rec); err != nil {
		logger.Warnw("Failed to record short link access", "file_id", fileID, "short_id", shortID, "error", err.Error())
	}
	metrics.LinkResolutions.WithLabelValues("ok").Inc()
	return rec.FileID, nil
}

// newShortID draws shortIDLength symbols from crypto/rand without modulo bias.
func newShortID() (string, error) {
	const limit = 256 - 256%len(shortIDAlphabet)

	out := make([]byte, 0, shortIDLength)
	buf := make([]byte, shortIDLength*2)
	for len(out) < shortIDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate short id: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, shortIDAlphabet[int(b)%len(shortIDAlphabet)])
			if len(out) == shortIDLength {
				break
			}
		}
	}
	return string(out), nil
}
