package report

import (
	"sort"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// Feed keeps live copies of the transaction and user sets by consuming
// store snapshots, the way the dashboard views subscribe to the data.
// The mutation protocol never goes through a Feed.
type Feed struct {
	mu      sync.RWMutex
	txs     []core.Transaction
	users   []core.User
	cancels []func()
	wg      sync.WaitGroup
}

func NewFeed(st store.Store) *Feed {
	f := &Feed{}

	txCh, cancelTx := st.Subscribe(store.CollectionTransactions)
	userCh, cancelUsers := st.Subscribe(store.CollectionUsers)
	f.cancels = []func(){cancelTx, cancelUsers}

	f.wg.Add(2)
	go func() {
		defer f.wg.Done()
		for snap := range txCh {
			f.setTransactions(snap)
		}
	}()
	go func() {
		defer f.wg.Done()
		for snap := range userCh {
			f.setUsers(snap)
		}
	}()
	return f
}

// Transactions returns the latest snapshot, newest first.
func (f *Feed) Transactions() []core.Transaction {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]core.Transaction(nil), f.txs...)
}

// Users returns the latest user snapshot.
func (f *Feed) Users() []core.User {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]core.User(nil), f.users...)
}

// Close detaches the feed from the store.
func (f *Feed) Close() {
	for _, cancel := range f.cancels {
		cancel()
	}
	f.wg.Wait()
}

func (f *Feed) setTransactions(snap store.Snapshot) {
	txs := make([]core.Transaction, 0, len(snap))
	for _, doc := range snap {
		txs = append(txs, core.TransactionFromDoc(doc.ID, doc.Fields))
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })

	f.mu.Lock()
	f.txs = txs
	f.mu.Unlock()
}

func (f *Feed) setUsers(snap store.Snapshot) {
	users := make([]core.User, 0, len(snap))
	for _, doc := range snap {
		users = append(users, core.UserFromDoc(doc.ID, doc.Fields))
	}

	f.mu.Lock()
	f.users = users
	f.mu.Unlock()
}
