package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"PodMatch-App/internal/domain/apperror"
)

// keyedLocks キーごとの排他。待ち時間に上限があり、使われていないキーは破棄する。
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

// acquire timeout 以内に取得できなければ ErrCapacityRaceLost を返す。
// 呼び出し元の ctx がキャンセルされた場合はその原因を返す。
func (l *keyedLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	err := entry.sem.Acquire(waitCtx, 1)
	cancel()
	if err != nil {
		l.release(key, entry, false)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.Wrap(apperror.CodeCapacityRaceLost, "グループの排他取得がタイムアウトしました", err)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, entry, true) })
	}, nil
}

func (l *keyedLocks) release(key string, entry *lockEntry, held bool) {
	if held {
		entry.sem.Release(1)
	}
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// size 保持中のキー数（テスト用）
func (l *keyedLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
