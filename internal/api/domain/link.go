package domain

import "time"

// ShortLink is the share descriptor embedded in a FileRecord.
type ShortLink struct {
	ShortID      string     `json:"shortId"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	AccessCount  int64      `json:"accessCount"`
	LastAccessAt *time.Time `json:"lastAccessAt,omitempty"`
}

// Active reports whether the link is still valid at now.
func (l *ShortLink) Active(now time.Time) bool {
	return l != nil && now.Before(l.ExpiresAt)
}

func (l ShortLink) Clone() ShortLink {
	if l.LastAccessAt != nil {
		t := *l.LastAccessAt
		l.LastAccessAt = &t
	}
	return l
}

// LegacyShortLink is the old standalone representation stored under its own key.
type LegacyShortLink struct {
	FileID      string    `json:"fileId"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	AccessCount int64     `json:"accessCount"`
}
