// Package memory keeps every repository in process memory.
// A transaction buffers the rows it writes and applies them when the
// closure succeeds. Rows are locked one by one until the transaction ends,
// so transactions over different accounts run side by side.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/KretovDmitry/joint-account-service/internal/domain/entities"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
)

type state struct {
	accounts  map[entities.AccountID]entities.Account
	counts    map[entities.PartyID]int
	requests  map[entities.RequestID]entities.WithdrawalRequest
	events    []entities.Event
	eventPos  map[uuid.UUID]int
	byAccount map[entities.AccountID][]int
	// pending holds positions of events not yet published, oldest first.
	pending   []int
	users     map[user.ID]user.User
	logins    map[string]user.ID
	accountID entities.AccountID
	requestID entities.RequestID
	userID    user.ID
}

func newState() *state {
	return &state{
		accounts:  make(map[entities.AccountID]entities.Account),
		counts:    make(map[entities.PartyID]int),
		requests:  make(map[entities.RequestID]entities.WithdrawalRequest),
		eventPos:  make(map[uuid.UUID]int),
		byAccount: make(map[entities.AccountID][]int),
		users:     make(map[user.ID]user.User),
		logins:    make(map[string]user.ID),
	}
}

// Store is the shared state behind the memory repositories.
type Store struct {
	// mu guards data and is only held for single reads or while a commit is applied.
	mu    sync.RWMutex
	data  *state
	locks *lockTable
}

func NewStore() *Store {
	return &Store{data: newState(), locks: newLockTable()}
}

type txKey struct{}

// Manager runs closures as transactions over a Store.
type Manager struct {
	store *Store
}

func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

var _ trm.Manager = (*Manager)(nil)

// Do runs fn in a transaction. Nested calls join the outer transaction.
// The changes of fn are applied once it returns nil.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}

	t := m.store.begin()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		t.rollback()
		return err
	}

	t.commit()

	return nil
}

// DoWithSettings ignores the settings, every transaction is serializable
// over the rows it locks.
func (m *Manager) DoWithSettings(ctx context.Context, _ trm.Settings, fn func(ctx context.Context) error) error {
	return m.Do(ctx, fn)
}

// run calls fn with the transaction of ctx. Outside a transaction fn gets
// a transaction of its own that commits when fn succeeds.
func (s *Store) run(ctx context.Context, fn func(t *tx) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(t)
	}

	t := s.begin()
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	t.commit()

	return nil
}

// tx holds the rows written by one transaction and the locks it took.
// Reads see the transaction's own writes first, then committed data.
type tx struct {
	store    *Store
	held     map[lockKey]func()
	accounts map[entities.AccountID]entities.Account
	counts   map[entities.PartyID]int
	requests map[entities.RequestID]entities.WithdrawalRequest
	inserted []entities.Event
	updated  map[uuid.UUID]entities.Event
	users    map[user.ID]user.User
	logins   map[string]user.ID
	// undo gives back sequence values when the transaction fails.
	undo []func(st *state)
}

func (s *Store) begin() *tx {
	return &tx{
		store:    s,
		held:     make(map[lockKey]func()),
		accounts: make(map[entities.AccountID]entities.Account),
		counts:   make(map[entities.PartyID]int),
		requests: make(map[entities.RequestID]entities.WithdrawalRequest),
		updated:  make(map[uuid.UUID]entities.Event),
		users:    make(map[user.ID]user.User),
		logins:   make(map[string]user.ID),
	}
}

// lock takes the row lock for key unless the transaction already holds it.
// Waiting ends with ctx.
func (t *tx) lock(ctx context.Context, key lockKey) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	release, err := t.store.locks.acquire(ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = release
	return nil
}

// lockAll takes several locks in a fixed order.
func (t *tx) lockAll(ctx context.Context, keys []lockKey) error {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	for _, key := range keys {
		if err := t.lock(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) account(id entities.AccountID) (entities.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.data.accounts[id]
	return a, ok
}

func (t *tx) count(p entities.PartyID) int {
	if n, ok := t.counts[p]; ok {
		return n
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.data.counts[p]
}

func (t *tx) request(id entities.RequestID) (entities.WithdrawalRequest, bool) {
	if r, ok := t.requests[id]; ok {
		return r, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	r, ok := t.store.data.requests[id]
	return r, ok
}

func (t *tx) event(id uuid.UUID) (entities.Event, bool) {
	if e, ok := t.updated[id]; ok {
		return e, true
	}
	for _, e := range t.inserted {
		if e.ID == id {
			return e, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	pos, ok := t.store.data.eventPos[id]
	if !ok {
		return entities.Event{}, false
	}
	return t.store.data.events[pos], true
}

// pending lists unpublished events as the transaction sees them.
func (t *tx) pending() []entities.Event {
	t.store.mu.RLock()
	events := make([]entities.Event, 0, len(t.store.data.pending)+len(t.inserted))
	for _, pos := range t.store.data.pending {
		events = append(events, t.store.data.events[pos])
	}
	t.store.mu.RUnlock()

	return t.overlayEvents(events, func(e entities.Event) bool {
		return e.Status != entities.EventPublished
	})
}

func (t *tx) eventsOf(id entities.AccountID) []entities.Event {
	t.store.mu.RLock()
	positions := t.store.data.byAccount[id]
	events := make([]entities.Event, 0, len(positions))
	for _, pos := range positions {
		events = append(events, t.store.data.events[pos])
	}
	t.store.mu.RUnlock()

	return t.overlayEvents(events, func(e entities.Event) bool {
		return e.AccountID == id
	})
}

// overlayEvents replaces committed events by their updated versions and
// appends the inserted events that match.
func (t *tx) overlayEvents(events []entities.Event, match func(entities.Event) bool) []entities.Event {
	for i, e := range events {
		if u, ok := t.updated[e.ID]; ok {
			events[i] = u
		}
	}
	for _, e := range t.inserted {
		if match(e) {
			events = append(events, e)
		}
	}
	return events
}

func (t *tx) userByID(id user.ID) (user.User, bool) {
	if u, ok := t.users[id]; ok {
		return u, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	u, ok := t.store.data.users[id]
	return u, ok
}

func (t *tx) userID(login string) (user.ID, bool) {
	if id, ok := t.logins[login]; ok {
		return id, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.data.logins[login]
	return id, ok
}

func (t *tx) nextAccountID() entities.AccountID {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.data.accountID++
	id := t.store.data.accountID
	t.undo = append(t.undo, func(st *state) {
		if st.accountID == id {
			st.accountID--
		}
	})
	return id
}

func (t *tx) nextRequestID() entities.RequestID {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.data.requestID++
	id := t.store.data.requestID
	t.undo = append(t.undo, func(st *state) {
		if st.requestID == id {
			st.requestID--
		}
	})
	return id
}

func (t *tx) nextUserID() user.ID {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.data.userID++
	id := t.store.data.userID
	t.undo = append(t.undo, func(st *state) {
		if st.userID == id {
			st.userID--
		}
	})
	return id
}

// commit applies the buffered rows, then releases the locks.
func (t *tx) commit() {
	if !t.dirty() {
		t.release()
		return
	}

	st := t.store.data

	t.store.mu.Lock()
	for id, a := range t.accounts {
		st.accounts[id] = a
	}
	for p, n := range t.counts {
		st.counts[p] = n
	}
	for id, r := range t.requests {
		st.requests[id] = r
	}
	for _, e := range t.inserted {
		pos := len(st.events)
		st.eventPos[e.ID] = pos
		st.byAccount[e.AccountID] = append(st.byAccount[e.AccountID], pos)
		if e.Status != entities.EventPublished {
			st.pending = append(st.pending, pos)
		}
		st.events = append(st.events, e)
	}
	published := false
	for id, e := range t.updated {
		st.events[st.eventPos[id]] = e
		published = published || e.Status == entities.EventPublished
	}
	if published {
		st.pending = slices.DeleteFunc(st.pending, func(pos int) bool {
			return st.events[pos].Status == entities.EventPublished
		})
	}
	for id, u := range t.users {
		st.users[id] = u
	}
	for login, id := range t.logins {
		st.logins[login] = id
	}
	t.store.mu.Unlock()

	t.release()
}

func (t *tx) dirty() bool {
	return len(t.accounts)+len(t.counts)+len(t.requests)+len(t.inserted)+
		len(t.updated)+len(t.users)+len(t.logins) > 0
}

func (t *tx) rollback() {
	if len(t.undo) > 0 {
		t.store.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i](t.store.data)
		}
		t.store.mu.Unlock()
	}

	t.release()
}

func (t *tx) release() {
	for key, release := range t.held {
		release()
		delete(t.held, key)
	}
}
