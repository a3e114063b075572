package kv

import (
	"errors"
	"strings"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"

	defaultMemoryShards = 16
)

// ErrWrongType mirrors Redis WRONGTYPE: a list operation against a plain value or vice versa.
var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

// New picks the index backend once, from credential availability.
// Without a URL the in-memory map is used; callers cannot tell the difference.
func New(cfg config.KVConfig, timeout time.Duration) (port.KVStore, error) {
	if !cfg.Remote() {
		logger.Warnw("KV credentials absent, using in-memory index", "backend", BackendMemory)
		return NewMemoryStore(defaultMemoryShards), nil
	}

	store, err := DialRedis(strings.TrimSpace(cfg.URL), cfg.Token, timeout)
	if err != nil {
		return nil, err
	}
	logger.Infow("Index backend selected", "backend", BackendRedis)
	return store, nil
}
