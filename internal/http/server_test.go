package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/report"
	"bilancio/internal/store"
)

type fixture struct {
	srv  *Server
	mem  *store.Memory
	feed *report.Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	feed := report.NewFeed(mem)
	svc := ledger.New(mem, nil)
	srv := NewServer(":0", svc, mem, feed, 6)

	t.Cleanup(func() {
		srv.rateLimiter.stop()
		srv.cacheManager.Stop()
		feed.Close()
		mem.Close()
	})

	return &fixture{srv: srv, mem: mem, feed: feed}
}

func (f *fixture) seedUser(t *testing.T, id, name string) {
	t.Helper()
	u := core.User{ID: id, Name: name, Role: core.RoleMember}
	if err := f.mem.Set(context.Background(), store.CollectionUsers, id, u.Doc()); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) balanceOf(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	doc, err := f.mem.Get(context.Background(), store.CollectionUsers, id)
	if err != nil {
		t.Fatal(err)
	}
	return core.UserFromDoc(id, doc.Fields).Balance
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) waitForFeed(t *testing.T, txCount int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.feed.Transactions()) == txCount {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("feed did not reach %d transactions in time", txCount)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rec.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")

	rec := f.do(http.MethodPost, "/api/transactions", `{
		"type": "Expense", "amount": "42.50", "date": "2025-04-02",
		"user": "alice", "category": "Groceries", "description": "weekly shop"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["id"] == "" {
		t.Fatal("response missing transaction id")
	}

	want := decimal.RequireFromString("-42.5")
	if got := f.balanceOf(t, "alice"); !got.Equal(want) {
		t.Errorf("alice balance = %s, want %s", got, want)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "garbage body",
			body: `{not json`,
			want: http.StatusBadRequest,
		},
		{
			name: "zero amount",
			body: `{"type":"Expense","amount":"0","date":"2025-04-02","user":"alice","category":"Misc"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "negative amount",
			body: `{"type":"Expense","amount":"-5","date":"2025-04-02","user":"alice","category":"Misc"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "missing category",
			body: `{"type":"Expense","amount":"5","date":"2025-04-02","user":"alice"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "read-only type",
			body: `{"type":"Profit","amount":"5","date":"2025-04-02","user":"alice","category":"Misc"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "bad date",
			body: `{"type":"Expense","amount":"5","date":"April 2nd","user":"alice","category":"Misc"}`,
			want: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	// No writes happened.
	if got := f.balanceOf(t, "alice"); !got.IsZero() {
		t.Errorf("alice balance = %s, want 0", got)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")

	rec := f.do(http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"30","date":"2025-04-02","user":"alice","category":"Misc"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	id := created["id"]

	rec = f.do(http.MethodPut, "/api/transactions",
		`{"id":"`+id+`","type":"Income","amount":"30","date":"2025-04-02","user":"alice","category":"Salary"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := f.balanceOf(t, "alice"); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("balance after type flip = %s, want 30", got)
	}

	rec = f.do(http.MethodDelete, "/api/transactions?id="+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got := f.balanceOf(t, "alice"); !got.IsZero() {
		t.Errorf("balance after delete = %s, want 0", got)
	}
}

func TestDeleteUnknownTransaction(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodDelete, "/api/transactions?id=nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTransactionsMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPatch, "/api/transactions", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, "POST") {
		t.Errorf("Allow header = %q", allow)
	}
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")

	rec := f.do(http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"10","date":"2025-04-02","user":"alice","category":"Misc"}`)
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = f.do(http.MethodPost, "/api/transactions/comments",
		`{"transactionId":"`+created["id"]+`","text":"was this mine?","authorId":"bob"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var comment commentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &comment); err != nil {
		t.Fatal(err)
	}
	if comment.ID == "" || comment.Text != "was this mine?" {
		t.Errorf("comment = %+v", comment)
	}

	rec = f.do(http.MethodPost, "/api/transactions/comments",
		`{"transactionId":"`+created["id"]+`","text":"   "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank comment status = %d, want 422", rec.Code)
	}
}

func TestSplitEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "p", "Paula")
	f.seedUser(t, "q", "Quinn")
	f.seedUser(t, "r", "Rita")

	rec := f.do(http.MethodPost, "/api/split", `{
		"payer": "p", "participants": ["q", "r"],
		"total": "300", "description": "dinner", "date": "2025-04-02"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp splitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Share != "100" {
		t.Errorf("share = %s, want 100", resp.Share)
	}
	if resp.ExpenseID == "" || len(resp.TransferIDs) != 2 {
		t.Errorf("result = %+v", resp)
	}

	// Everyone ends up 100 down.
	for _, id := range []string{"p", "q", "r"} {
		if got := f.balanceOf(t, id); !got.Equal(decimal.NewFromInt(-100)) {
			t.Errorf("%s balance = %s, want -100", id, got)
		}
	}
}

func TestSplitValidation(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "p", "Paula")

	rec := f.do(http.MethodPost, "/api/split",
		`{"payer":"p","participants":["p"],"total":"100","date":"2025-04-02"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("payer participating: status = %d, want 422", rec.Code)
	}
}

func TestUsersEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/users", `{"name":"Alice","email":"alice@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var users []userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Name != "Alice" || users[0].Role != core.RoleMember {
		t.Errorf("users = %+v", users)
	}
	if users[0].Balance != "0" {
		t.Errorf("new user balance = %s, want 0", users[0].Balance)
	}

	rec = f.do(http.MethodPost, "/api/users", `{"name":"  "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status = %d, want 422", rec.Code)
	}
}

func TestUserHistoryEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")

	f.do(http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"10","date":"2025-04-02","user":"alice","category":"Misc"}`)
	f.do(http.MethodPost, "/api/transactions",
		`{"type":"Transfer","amount":"20","date":"2025-04-03","user":"bob","to":"alice"}`)
	f.waitForFeed(t, 2)

	rec := f.do(http.MethodGet, "/api/users/transactions?user=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var history []transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	// Newest first.
	if history[0].Type != "Transfer" || history[1].Type != "Expense" {
		t.Errorf("history order: %s, %s", history[0].Type, history[1].Type)
	}

	rec = f.do(http.MethodGet, "/api/users/transactions", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user param status = %d, want 400", rec.Code)
	}
}

func TestCategoryReportEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")

	today := time.Now().Format("2006-01-02")
	f.do(http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"25","date":"`+today+`","user":"alice","category":"Groceries"}`)
	f.do(http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"40","date":"`+today+`","user":"alice","category":"Rent"}`)
	f.waitForFeed(t, 2)

	rec := f.do(http.MethodGet, "/api/reports/categories?range=thisMonth", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []categoryRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Name != "Rent" || rows[0].Total != "40" {
		t.Errorf("top category = %+v, want Rent/40", rows[0])
	}
}

func TestBudgetReportEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")

	today := time.Now().Format("2006-01-02")
	f.do(http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"80","date":"`+today+`","user":"alice","category":"Groceries"}`)
	f.waitForFeed(t, 1)

	rec := f.do(http.MethodPost, "/api/reports/budgets", `{
		"range": "thisMonth",
		"budgets": [{"category": "Groceries", "amount": "200"}]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var rows []budgetRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Spent != "80" || rows[0].Budget != "200" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestExportCSVEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")

	f.do(http.MethodPost, "/api/transactions",
		`{"type":"Expense","amount":"10","date":"2025-04-02","user":"alice","category":"Misc"}`)
	f.waitForFeed(t, 1)

	rec := f.do(http.MethodGet, "/api/export/csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, report.CSVHeader) {
		t.Errorf("csv output missing header: %q", body)
	}
	if !strings.Contains(body, `"Alice"`) {
		t.Errorf("csv output missing resolved user name: %q", body)
	}
}
