package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/google/uuid"
)

// lockKey names one lockable row.
type lockKey string

func accountKey(id entities.AccountID) lockKey {
	return lockKey("account/" + strconv.FormatInt(int64(id), 10))
}

func partyKey(p entities.PartyID) lockKey { return lockKey("party/" + string(p)) }

func requestKey(id entities.RequestID) lockKey {
	return lockKey("request/" + strconv.FormatInt(int64(id), 10))
}

func eventKey(id uuid.UUID) lockKey { return lockKey("event/" + id.String()) }

func loginKey(login string) lockKey { return lockKey("login/" + login) }

type rowLock struct {
	sem  chan struct{}
	refs int
}

// lockTable hands out exclusive row locks. An entry lives only while
// somebody holds or waits for it.
type lockTable struct {
	mu    sync.Mutex
	locks map[lockKey]*rowLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[lockKey]*rowLock)}
}

// acquire blocks until the lock for key is free or ctx is done.
func (lt *lockTable) acquire(ctx context.Context, key lockKey) (release func(), err error) {
	lt.mu.Lock()
	l, ok := lt.locks[key]
	if !ok {
		l = &rowLock{sem: make(chan struct{}, 1)}
		lt.locks[key] = l
	}
	l.refs++
	lt.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			lt.drop(key, l)
		}, nil
	case <-ctx.Done():
		lt.drop(key, l)
		return nil, ctx.Err()
	}
}

func (lt *lockTable) drop(key lockKey, l *rowLock) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(lt.locks, key)
	}
}

// size reports the number of live entries.
func (lt *lockTable) size() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return len(lt.locks)
}
