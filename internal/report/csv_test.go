package report

import (
	"strings"
	"testing"
	"time"

	"bilancio/internal/core"
)

func TestWriteCSV(t *testing.T) {
	users := []core.User{
		{ID: "alice", Name: "Alice"},
		{ID: "bob", Name: "Bob"},
	}
	txs := []core.Transaction{
		{ID: "t1", Type: core.Expense, Amount: amt(120), Date: date(2025, 4, 3), User: "alice", Category: "Groceries", Description: `Said "hi" at the till`},
		{ID: "t2", Type: core.Transfer, Amount: amt(60), Date: date(2025, 4, 8), User: "alice", To: "bob"},
		{ID: "t3", Type: core.Expense, Amount: amt(999), Date: date(2025, 3, 1), User: "bob", Category: "Travel"},
	}

	var sb strings.Builder
	from, to := april()
	if err := WriteCSV(&sb, txs, users, from, to); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: %q", lines)
	}
	if lines[0] != CSVHeader {
		t.Fatalf("header = %q", lines[0])
	}
	// Newest first; quotes doubled inside quoted fields; amount unquoted.
	if lines[1] != `t2,2025-04-08,"Alice",Transfer,"","",60,"Bob"` {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if lines[2] != `t1,2025-04-03,"Alice",Expense,"Groceries","Said ""hi"" at the till",120,""` {
		t.Fatalf("row 2 = %q", lines[2])
	}
}

func TestWriteCSVUnknownUser(t *testing.T) {
	txs := []core.Transaction{
		{ID: "t1", Type: core.Income, Amount: amt(10), Date: date(2025, 4, 3), User: "ghost", Category: "Salary"},
	}
	var sb strings.Builder
	if err := WriteCSV(&sb, txs, nil, time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), `"ghost"`) {
		t.Fatalf("unknown user id not exported verbatim: %q", sb.String())
	}
}
