package report

import (
	"context"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

func TestFeedTracksStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	defer mem.Close()

	feed := NewFeed(mem)
	defer feed.Close()

	u := core.User{ID: "alice", Name: "Alice"}
	if err := mem.Set(ctx, store.CollectionUsers, u.ID, u.Doc()); err != nil {
		t.Fatal(err)
	}
	tx := core.Transaction{Type: core.Expense, Amount: amt(10), Date: date(2025, 4, 1), User: "alice", Category: "Misc"}
	if _, err := mem.Add(ctx, store.CollectionTransactions, tx.Doc()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		return len(feed.Users()) == 1 && len(feed.Transactions()) == 1
	})

	got := feed.Transactions()[0]
	if got.User != "alice" || !got.Amount.Equal(amt(10)) {
		t.Fatalf("feed transaction: %+v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
