package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	tb := newTokenBucket(2, 3, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d within capacity", i+1)
	}
	assert.False(t, tb.Allow())

	clock.Advance(500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	tb := newTokenBucket(100, 2, clock.Now)

	clock.Advance(time.Hour)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestFixedWindowCounter(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	fw := newFixedWindowCounter(2, time.Minute, clock.Now)

	assert.True(t, fw.Allow())
	assert.True(t, fw.Allow())
	assert.False(t, fw.Allow())

	clock.Advance(time.Minute)
	assert.True(t, fw.Allow())
}

func TestSlidingWindowLog(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	sw := newSlidingWindowLog(2, time.Minute, clock.Now)

	assert.True(t, sw.Allow())
	clock.Advance(30 * time.Second)
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	// 第一条记录滑出窗口后才释放一个名额。
	clock.Advance(30 * time.Second)
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	clock.Advance(time.Minute)
	assert.True(t, sw.Allow())
	assert.True(t, sw.Allow())
}
