package indexer

import (
	"sync/atomic"
	"time"
)

// buildLock serializes the operations that publish a new snapshot. It never
// blocks: a second Build, Learn or Import fails fast with
// types.ErrBuildInProgress while readers keep using the current snapshot.
type buildLock struct {
	since atomic.Int64 // unix nanos of the holder's acquisition, 0 when free
}

// TryAcquire takes the lock if it is free
func (l *buildLock) TryAcquire() bool {
	return l.since.CompareAndSwap(0, time.Now().UnixNano())
}

// Release frees the lock. Only the holder may call it.
func (l *buildLock) Release() {
	l.since.Store(0)
}

// HeldFor reports how long the current holder has had the lock
func (l *buildLock) HeldFor() (time.Duration, bool) {
	since := l.since.Load()
	if since == 0 {
		return 0, false
	}
	return time.Since(time.Unix(0, since)), true
}

// Building reports whether a build, learn or import is running and for how long
func (ix *Index) Building() (time.Duration, bool) {
	return ix.lock.HeldFor()
}
