package cache

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
)

// ContentEntry is the cached state of one file.
type ContentEntry struct {
	Identity    models.FileIdentity
	Content     string
	ContentHash string
	ModTime     time.Time
	Size        int64
}

// ContentCache is a source.Source that keeps recently read files in memory.
// A file whose size and modification time are unchanged since it was cached
// is served without touching its contents on disk.
type ContentCache struct {
	entries *lru.Cache[models.FileIdentity, *ContentEntry]
	mutex   sync.Mutex
	metrics CacheMetrics
}

func NewContentCache(config *CacheConfig) (*ContentCache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	cc := &ContentCache{}
	entries, err := lru.NewWithEvict(config.MaxEntries, func(id models.FileIdentity, _ *ContentEntry) {
		cc.metrics.Invalidations++
		logger.Debug("ContentCache: Evicted %s", id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}
	cc.entries = entries

	logger.Debug("Created content cache with MaxEntries=%d", config.MaxEntries)
	return cc, nil
}

func (cc *ContentCache) Exists(id models.FileIdentity) (bool, error) {
	_, err := os.Stat(id.String())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		cc.Invalidate(id)
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", id, err)
}

func (cc *ContentCache) ReadFile(id models.FileIdentity) (string, error) {
	entry, _, err := cc.UpdateContent(id)
	if err != nil {
		return "", err
	}
	return entry.Content, nil
}

// UpdateContent returns the current entry for id and whether the file
// changed since it was last cached.
func (cc *ContentCache) UpdateContent(id models.FileIdentity) (*ContentEntry, bool, error) {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	stat, err := os.Stat(id.String())
	if err != nil {
		cc.entries.Remove(id)
		return nil, false, err
	}
	if stat.IsDir() {
		return nil, false, fmt.Errorf("%s is a directory", id)
	}

	existing, exists := cc.entries.Get(id)
	if exists && stat.Size() == existing.Size && stat.ModTime().Equal(existing.ModTime) {
		logger.Debug("ContentCache: Quick hit for %s (size and modtime unchanged)", id)
		cc.metrics.Hits++
		return existing, false, nil
	}

	cc.metrics.Misses++
	data, err := os.ReadFile(id.String())
	if err != nil {
		return nil, false, err
	}

	entry := &ContentEntry{
		Identity:    id,
		Content:     string(data),
		ContentHash: HashContent(string(data)),
		ModTime:     stat.ModTime(),
		Size:        stat.Size(),
	}

	changed := !exists || entry.ContentHash != existing.ContentHash
	if exists && !changed {
		logger.Debug("ContentCache: Metadata changed but content same for %s", id)
	} else if exists {
		logger.Debug("ContentCache: Content changed for %s (hash: %s -> %s)", id, existing.ContentHash[:8], entry.ContentHash[:8])
	} else {
		logger.Debug("ContentCache: New file detected: %s", id)
	}

	cc.entries.Add(id, entry)
	return entry, changed, nil
}

// GetContent retrieves the cached entry without checking the file.
func (cc *ContentCache) GetContent(id models.FileIdentity) (*ContentEntry, bool) {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()
	return cc.entries.Peek(id)
}

// Invalidate drops the entry for id.
func (cc *ContentCache) Invalidate(id models.FileIdentity) {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()
	if cc.entries.Remove(id) {
		logger.Debug("ContentCache: Invalidated %s", id)
	}
}

func (cc *ContentCache) GetMetrics() *CacheMetrics {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	metrics := cc.metrics
	metrics.TotalEntries = cc.entries.Len()
	metrics.CalculateHitRate()
	return &metrics
}

// LogStats logs the cache metrics, as JSON when verbose logging is on.
func (cc *ContentCache) LogStats() {
	metrics := cc.GetMetrics()
	if logger.IsVerbose() {
		if data, err := json.Marshal(metrics); err == nil {
			logger.Debug("Cache stats: %s", data)
			return
		}
	}
	logger.Info("Cache stats: Hits=%d, Misses=%d, Hit Rate=%.1f%%, Total Entries=%d, Invalidations=%d",
		metrics.Hits, metrics.Misses, metrics.HitRate, metrics.TotalEntries, metrics.Invalidations)
}

// Clear removes all entries.
func (cc *ContentCache) Clear() {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()
	cc.entries.Purge()
	cc.metrics = CacheMetrics{}
}

// HashContent returns the hex MD5 of s.
func HashContent(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}
