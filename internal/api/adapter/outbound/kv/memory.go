package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/spaolacci/murmur3"
)

type memoryEntry struct {
	value     string
	list      []string
	isList    bool
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// sweepInterval bounds how often a write scans its shard for expired keys.
const sweepInterval = time.Minute

type memoryShard struct {
	mu        sync.Mutex
	items     map[string]*memoryEntry
	nextSweep time.Time
}

// MemoryStore is the in-process index backend. Keys are spread over
// murmur3-selected shards, each guarded by its own mutex. There is no
// native TTL, so expiry is tracked per entry and enforced on access. Keys
// that are never read again are reclaimed by a periodic sweep on write.
type MemoryStore struct {
	shards []*memoryShard
	now    func() time.Time
}

var _ port.KVStore = (*MemoryStore)(nil)

func NewMemoryStore(shardCount int) *MemoryStore {
	if shardCount <= 0 {
		shardCount = defaultMemoryShards
	}
	shards := make([]*memoryShard, shardCount)
	for i := range shards {
		shards[i] = &memoryShard{items: make(map[string]*memoryEntry)}
	}
	return &MemoryStore{shards: shards, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *MemoryStore) shardFor(key string) *memoryShard {
	idx := murmur3.Sum32([]byte(key)) % uint32(len(s.shards))
	return s.shards[idx]
}

// liveLocked returns the entry if present and not expired, evicting it otherwise.
func (sh *memoryShard) liveLocked(key string, now time.Time) *memoryEntry {
	e, ok := sh.items[key]
	if !ok {
		return nil
	}
	if e.expired(now) {
		delete(sh.items, key)
		return nil
	}
	return e
}

// sweepLocked drops every expired entry once the shard's sweep is due.
func (sh *memoryShard) sweepLocked(now time.Time) {
	if now.Before(sh.nextSweep) {
		return
	}
	for key, e := range sh.items {
		if e.expired(now) {
			delete(sh.items, key)
		}
	}
	sh.nextSweep = now.Add(sweepInterval)
}

func (s *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	sh.sweepLocked(now)

	e := &memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	sh.items[key] = e
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.liveLocked(key, s.now())
	if e == nil {
		return "", false, nil
	}
	if e.isList {
		return "", false, ErrWrongType
	}
	return e.value, true, nil
}

func (s *MemoryStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		v, found, err := s.Get(ctx, key)
		if err == ErrWrongType {
			continue
		}
		if err != nil {
			return nil, err
		}
		if found {
			out[key] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		sh := s.shardFor(key)
		sh.mu.Lock()
		delete(sh.items, key)
		sh.mu.Unlock()
	}
	return nil
}

func (s *MemoryStore) ListPush(ctx context.Context, key string, values ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	sh.sweepLocked(now)

	e := sh.liveLocked(key, now)
	if e == nil {
		e = &memoryEntry{isList: true}
		sh.items[key] = e
	}
	if !e.isList {
		return ErrWrongType
	}

	// Same order as LPUSH: the last value ends up at the head.
	head := make([]string, 0, len(values)+len(e.list))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	e.list = append(head, e.list...)
	return nil
}

func (s *MemoryStore) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.liveLocked(key, s.now())
	if e == nil {
		return []string{}, nil
	}
	if !e.isList {
		return nil, ErrWrongType
	}

	from, to, ok := normalizeRange(int64(len(e.list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, to-from+1)
	copy(out, e.list[from:to+1])
	return out, nil
}

func (s *MemoryStore) ListRemove(ctx context.Context, key string, value string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.liveLocked(key, s.now())
	if e == nil {
		return 0, nil
	}
	if !e.isList {
		return 0, ErrWrongType
	}

	kept := e.list[:0]
	var removed int64
	for _, v := range e.list {
		if v == value {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	e.list = kept
	if len(e.list) == 0 {
		delete(sh.items, key)
	}
	return removed, nil
}

func (s *MemoryStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	keys := make([]string, 0)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key := range sh.items {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if sh.liveLocked(key, now) != nil {
				keys = append(keys, key)
			}
		}
		sh.mu.Unlock()
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Backend() string {
	return BackendMemory
}

func (s *MemoryStore) Close() error {
	return nil
}

// normalizeRange applies Redis LRANGE index rules.
func normalizeRange(length, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if length == 0 || start > stop || start >= length {
		return 0, 0, false
	}
	return start, stop, true
}
