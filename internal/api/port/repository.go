package port

import (
	"context"
	"io"
	"time"
)

//go:generate mockgen -destination=../service/mocks/transport_mock.go -package=mocks -source=repository.go

// Attachment is the blob carried by a channel message.
type Attachment struct {
	FileID   string
	FileName string
	MimeType string
	FileSize int64
}

// Message is a channel post as seen by the transport.
type Message struct {
	MessageID  int64
	ChannelID  string
	Date       time.Time
	Attachment *Attachment
}

// Transport is the messaging service used as a blob store.
type Transport interface {
	// ChannelID returns the fixed channel all files are posted to.
	ChannelID() string

	// SendDocument posts content as a document attachment to the channel.
	SendDocument(ctx context.Context, fileName string, content []byte) (*Message, error)

	// FileURL resolves a short-lived download location for a file.
	FileURL(ctx context.Context, fileID string) (string, error)

	// Fetch streams the content behind a URL returned by FileURL.
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)

	// DeleteMessage removes a channel message and its attachment.
	DeleteMessage(ctx context.Context, messageID int64) error

	// History returns a bounded window of recent channel posts.
	History(ctx context.Context, limit int) ([]Message, error)
}

// KVStore is the key-value index backend. Values are opaque strings;
// serialization happens above this interface.
type KVStore interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get returns found=false for missing or expired keys.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// GetMany returns only the keys that exist.
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Delete(ctx context.Context, keys ...string) error

	// ListPush prepends values to the list at key.
	ListPush(ctx context.Context, key string, values ...string) error
	// ListRange returns elements between start and stop inclusive; negative indexes count from the tail.
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ListRemove deletes every occurrence of value and returns how many were removed.
	ListRemove(ctx context.Context, key string, value string) (int64, error)

	// Scan enumerates live keys with the given prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)

	Backend() string
	Close() error
}

// TaskStore persists delete queue state across restarts.
type TaskStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}
