package middleware

import (
	"sync"
	"time"
)

// TrafficWindow sums one rolling window. Images counts JPEG responses,
// i.e. compressed outputs served to clients.
type TrafficWindow struct {
	Requests int64   `json:"requests"`
	Images   int64   `json:"images"`
	Bytes    int64   `json:"bytes"`
	Bps      float64 `json:"bps"`
}

type TrafficSnapshot struct {
	M1  TrafficWindow `json:"1m"`
	M5  TrafficWindow `json:"5m"`
	M60 TrafficWindow `json:"60m"`
	H24 TrafficWindow `json:"24h"`
}

type trafficBucket struct {
	minute   int64
	requests int64
	images   int64
	bytes    int64
}

// TrafficStats keeps per-minute buckets over a rolling day.
type TrafficStats struct {
	mu      sync.Mutex
	buckets []trafficBucket
}

const minutesInDay = 24 * 60

func NewTrafficStats() *TrafficStats {
	return &TrafficStats{buckets: make([]trafficBucket, minutesInDay)}
}

// Add records one response of the given size.
func (t *TrafficStats) Add(bytes int, image bool, now time.Time) {
	minute := now.Unix() / 60

	t.mu.Lock()
	defer t.mu.Unlock()

	b := &t.buckets[minute%minutesInDay]
	if b.minute != minute {
		*b = trafficBucket{minute: minute}
	}
	b.requests++
	b.bytes += int64(bytes)
	if image {
		b.images++
	}
}

func (t *TrafficStats) Snapshot(now time.Time) TrafficSnapshot {
	current := now.Unix() / 60

	t.mu.Lock()
	defer t.mu.Unlock()

	window := func(minutes int64) TrafficWindow {
		var w TrafficWindow
		for minute := current - minutes + 1; minute <= current; minute++ {
			b := t.buckets[minute%minutesInDay]
			if b.minute != minute {
				continue
			}
			w.Requests += b.requests
			w.Images += b.images
			w.Bytes += b.bytes
		}
		w.Bps = float64(w.Bytes) / float64(minutes*60)
		return w
	}

	return TrafficSnapshot{
		M1:  window(1),
		M5:  window(5),
		M60: window(60),
		H24: window(minutesInDay),
	}
}
