package domain

import (
	"sort"
	"time"
)

// FileRecord describes one file stored as an attachment on a channel message.
// FileID is unique per channel.
type FileRecord struct {
	FileID     string     `json:"fileId"`
	MessageID  int64      `json:"messageId"`
	FileName   string     `json:"fileName"`
	FileSize   int64      `json:"fileSize"`
	MimeType   string     `json:"mimeType,omitempty"`
	UploadTime time.Time  `json:"uploadTime"`
	ChannelID  string     `json:"channelId"`
	ShortLink  *ShortLink `json:"shortLink,omitempty"`
}

// Clone returns a deep copy so callers can mutate the record without touching shared state.
func (r FileRecord) Clone() FileRecord {
	if r.ShortLink != nil {
		link := r.ShortLink.Clone()
		r.ShortLink = &link
	}
	return r
}

// SortByUploadTimeDesc orders records newest first. Ties keep the message order.
func SortByUploadTimeDesc(records []FileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UploadTime.Equal(records[j].UploadTime) {
			return records[i].MessageID > records[j].MessageID
		}
		return records[i].UploadTime.After(records[j].UploadTime)
	})
}

// Summary aggregates a file list.
type Summary struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"totalSize"`
}

// Summarize computes count and total size over records.
func Summarize(records []FileRecord) Summary {
	s := Summary{Count: len(records)}
	for _, r := range records {
		s.TotalSize += r.FileSize
	}
	return s
}
