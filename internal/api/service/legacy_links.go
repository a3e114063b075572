package service

import (
	"context"
	"fmt"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
)

// resolveLegacy serves links minted before they were embedded in records.
func (s *LinkServiceImpl) resolveLegacy(ctx context.Context, shortID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, found, err := s.index.getLegacyLink(ctx, shortID)
	if err != nil {
		return "", err
	}
	if !found {
		metrics.LinkResolutions.WithLabelValues("not_found").Inc()
		return "", fmt.Errorf("short link %s: %w", shortID, port.ErrNotFound)
	}

	now := s.now().UTC()
	if !now.Before(link.ExpiresAt) {
		if err := s.index.kv.Delete(ctx, legacyLinkKey(shortID)); err != nil {
			logger.Warnw("Failed to drop expired legacy link", "short_id", shortID, "error", err.Error())
		}
		metrics.LinkResolutions.WithLabelValues("expired").Inc()
		return "", fmt.Errorf("short link %s: %w", shortID, port.ErrExpired)
	}

	link.AccessCount++
	if err := s.index.putLegacyLink(ctx, shortID, *link, link.ExpiresAt.Sub(now)); err != nil {
		logger.Warnw("Failed to record legacy link access", "short_id", shortID, "error", err.Error())
	}
	metrics.LinkResolutions.WithLabelValues("legacy").Inc()
	return link.FileID, nil
}

// MigrateLegacy embeds still-valid legacy links into their records and
// deletes every legacy key. An active embedded link always wins.
func (s *LinkServiceImpl) MigrateLegacy(ctx context.Context) (*port.LegacyReport, error) {
	ids, err := s.index.scanLegacyLinks(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &port.LegacyReport{}
	now := s.now().UTC()
	for _, shortID := range ids {
		report.Scanned++

		link, found, err := s.index.getLegacyLink(ctx, shortID)
		switch {
		case err != nil:
			logger.Warnw("Unreadable legacy link", "short_id", shortID, "error", err.Error())
			report.Skipped++
		case !found:
			continue
		case !now.Before(link.ExpiresAt):
			report.Expired++
		default:
			migrated, err := s.embedLegacy(ctx, shortID, link, now)
			if err != nil {
				return report, err
			}
			if migrated {
				report.Migrated++
			} else {
				report.Skipped++
			}
		}

		if err := s.index.kv.Delete(ctx, legacyLinkKey(shortID)); err != nil {
			return report, fmt.Errorf("delete legacy link %s: %w", shortID, err)
		}
		report.Deleted++
	}

	logger.Infow("Legacy link migration completed",
		"scanned", report.Scanned,
		"migrated", report.Migrated,
		"expired", report.Expired,
		"skipped", report.Skipped,
		"deleted", report.Deleted,
	)
	return report, nil
}

func (s *LinkServiceImpl) embedLegacy(ctx context.Context, shortID string, link *domain.LegacyShortLink, now time.Time) (bool, error) {
	rec, found, err := s.index.getRecord(ctx, link.FileID)
	if err != nil {
		return false, err
	}
	if !found || rec.ShortLink.Active(now) {
		return false, nil
	}

	rec.ShortLink = &domain.ShortLink{
		ShortID:     shortID,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		AccessCount: link.AccessCount,
	}
	if err := s.index.putRecord(ctx, *rec); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeLegacy deletes every legacy link key and returns how many were removed.
func (s *LinkServiceImpl) PurgeLegacy(ctx context.Context) (int, error) {
	ids, err := s.index.scanLegacyLinks(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = legacyLinkKey(id)
	}
	if err := s.index.kv.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("purge legacy links: %w", err)
	}
	logger.Infow("Legacy links purged", "count", len(keys))
	return len(keys), nil
}
