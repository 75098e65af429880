package compress

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"squeeze/internal/image"
	"squeeze/internal/logging"
	"squeeze/internal/storage"
)

// CachedProcessor memoises an inner Processor on disk. Derived images depend only on
// (source bytes, params, backend), so a hit is byte-identical to a fresh run.
type CachedProcessor struct {
	inner image.Processor
	db    *storage.DB
	fs    *storage.Filesystem
	group singleflight.Group
	now   func() time.Time
}

func NewCachedProcessor(inner image.Processor, db *storage.DB, fs *storage.Filesystem) *CachedProcessor {
	return &CachedProcessor{inner: inner, db: db, fs: fs, now: time.Now}
}

func (c *CachedProcessor) Name() string {
	return c.inner.Name()
}

// CacheKey identifies a derived image.
func CacheKey(data []byte, p image.Params, backend string) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s_w%d_q%d_%s", hex.EncodeToString(sum[:]), p.MaxWidth, p.QualityPercent, backend)
}

func (c *CachedProcessor) Process(data []byte, p image.Params) (*image.Result, error) {
	key := CacheKey(data, p, c.inner.Name())

	if res := c.lookup(key); res != nil {
		return res, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		if res := c.lookup(key); res != nil {
			return res, nil
		}
		res, err := c.inner.Process(data, p)
		if err != nil {
			return nil, err
		}
		c.store(key, int64(len(data)), p, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Get(logging.Cache).Printf("cache shared key=%s", key)
	}
	return v.(*image.Result), nil
}

func (c *CachedProcessor) lookup(key string) *image.Result {
	d, err := c.db.GetDerived(key)
	if err != nil {
		logging.Get(logging.Cache).Printf("cache lookup failed key=%s err=%v", key, err)
		return nil
	}
	if d == nil {
		return nil
	}

	data, err := c.fs.Read(key)
	if err != nil {
		// Row without blob: drop the row and recompute.
		logging.Get(logging.Cache).Printf("cache blob missing key=%s err=%v", key, err)
		if err := c.db.DeleteDerived(key); err != nil {
			logging.Get(logging.Cache).Printf("cache delete failed key=%s err=%v", key, err)
		}
		return nil
	}

	if err := c.db.TouchDerived(key, c.now().Unix()); err != nil {
		logging.Get(logging.Cache).Printf("cache touch failed key=%s err=%v", key, err)
	}

	return &image.Result{
		Data:         data,
		Width:        d.Width,
		Height:       d.Height,
		SourceWidth:  d.SourceWidth,
		SourceHeight: d.SourceHeight,
		SourceSize:   d.SourceSize,
	}
}

// store never fails the caller; a result that cannot be cached is still returned.
func (c *CachedProcessor) store(key string, sourceSize int64, p image.Params, res *image.Result) {
	if err := c.fs.Save(key, res.Data); err != nil {
		logging.Get(logging.Cache).Printf("cache save failed key=%s err=%v", key, err)
		return
	}

	now := c.now().Unix()
	err := c.db.InsertDerived(&storage.Derived{
		Key:          key,
		Backend:      c.inner.Name(),
		Quality:      p.QualityPercent,
		MaxWidth:     p.MaxWidth,
		Width:        res.Width,
		Height:       res.Height,
		SourceWidth:  res.SourceWidth,
		SourceHeight: res.SourceHeight,
		SourceSize:   sourceSize,
		FileSize:     res.Size(),
		CreatedAt:    now,
		AccessedAt:   now,
	})
	if err != nil {
		logging.Get(logging.Cache).Printf("cache insert failed key=%s err=%v", key, err)
		if err := c.fs.Delete(key); err != nil {
			logging.Get(logging.Cache).Printf("cache blob delete failed key=%s err=%v", key, err)
		}
	}
}
