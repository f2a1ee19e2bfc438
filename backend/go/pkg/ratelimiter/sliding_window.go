package ratelimiter

import (
	"container/list"
	"sync"
	"time"
)

// SlidingWindowLog keeps the timestamps of admitted requests and allows at
// most limit of them within any window-long interval.
type SlidingWindowLog struct {
	limit  int
	window time.Duration
	log    *list.List // time.Time, oldest first
	now    clock
	mu     sync.Mutex
}

// NewSlidingWindowLog creates an empty log.
func NewSlidingWindowLog(limit int, window time.Duration) *SlidingWindowLog {
	return newSlidingWindowLog(limit, window, time.Now)
}

func newSlidingWindowLog(limit int, window time.Duration, now clock) *SlidingWindowLog {
	return &SlidingWindowLog{
		limit:  limit,
		window: window,
		log:    list.New(),
		now:    now,
	}
}

// Allow reports whether a request may proceed and records it if so.
func (sw *SlidingWindowLog) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	boundary := now.Add(-sw.window)
	for e := sw.log.Front(); e != nil; e = sw.log.Front() {
		if e.Value.(time.Time).After(boundary) {
			break
		}
		sw.log.Remove(e)
	}

	if sw.log.Len() >= sw.limit {
		return false
	}
	sw.log.PushBack(now)
	return true
}
