package cleanup

import (
	"context"
	"time"

	"squeeze/internal/compress"
	"squeeze/internal/config"
	"squeeze/internal/logging"
	"squeeze/internal/storage"
)

const interval = 5 * time.Minute

type Daemon struct {
	cfg      *config.Config
	db       *storage.DB
	fs       *storage.Filesystem
	sessions *compress.Manager
}

// NewDaemon builds a daemon; db and fs may be nil when the cache is disabled.
func NewDaemon(cfg *config.Config, db *storage.DB, fs *storage.Filesystem, sessions *compress.Manager) *Daemon {
	return &Daemon{cfg: cfg, db: db, fs: fs, sessions: sessions}
}

// Start runs a cleanup pass immediately and then every few minutes until ctx is done.
func (d *Daemon) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		d.cleanup(time.Now())

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				d.cleanup(now)
			}
		}
	}()
}

func (d *Daemon) cleanup(now time.Time) {
	if d.sessions != nil {
		if removed := d.sessions.Sweep(now); removed > 0 {
			logging.Get(logging.Cleanup).Printf("cleanup: dropped %d idle sessions", removed)
		}
	}

	if d.db == nil || d.fs == nil {
		return
	}
	d.evictCache()
}

func (d *Daemon) evictCache() {
	totalSize, err := d.db.GetTotalSize()
	if err != nil {
		logging.Get(logging.Cleanup).Printf("cleanup: failed to get cache size: %v", err)
		return
	}

	maxBytes := int64(d.cfg.CacheMaxMB * 1024 * 1024)
	targetBytes := int64(d.cfg.CacheTargetMB * 1024 * 1024)

	if totalSize < maxBytes {
		return
	}

	logging.Get(logging.Cleanup).Printf("cleanup: cache %.2f MB exceeds %.2f MB, evicting to %.2f MB",
		float64(totalSize)/(1024*1024),
		d.cfg.CacheMaxMB,
		d.cfg.CacheTargetMB)

	for totalSize > targetBytes {
		entries, err := d.db.GetOldestDerived(100)
		if err != nil {
			logging.Get(logging.Cleanup).Printf("cleanup: failed to get oldest entries: %v", err)
			return
		}

		if len(entries) == 0 {
			break
		}

		progress := false
		for _, e := range entries {
			if totalSize <= targetBytes {
				break
			}

			if err := d.fs.Delete(e.Key); err != nil {
				logging.Get(logging.Cleanup).Printf("cleanup: failed to delete blob %s: %v", e.Key, err)
				continue
			}

			if err := d.db.DeleteDerived(e.Key); err != nil {
				logging.Get(logging.Cleanup).Printf("cleanup: failed to delete row %s: %v", e.Key, err)
				continue
			}

			totalSize -= e.FileSize
			progress = true
		}
		if !progress {
			break
		}
	}

	logging.Get(logging.Cleanup).Printf("cleanup: done, cache now %.2f MB", float64(totalSize)/(1024*1024))
}
