package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"bilancio/internal/core"
)

// CSVHeader is the fixed export header. Text fields are always quoted
// with internal quotes doubled; the amount stays an unquoted number.
const CSVHeader = "ID,Date,User,Type,Category,Description,Amount,To"

// WriteCSV exports the transactions within [from, to], newest first.
// User ids resolve to display names when the user is known.
func WriteCSV(w io.Writer, txs []core.Transaction, users []core.User, from, to time.Time) error {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	resolve := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return id
	}

	rows := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if inRange(tx.Date, from, to) {
			rows = append(rows, tx)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })

	if _, err := fmt.Fprintln(w, CSVHeader); err != nil {
		return err
	}
	for _, tx := range rows {
		toName := ""
		if tx.To != "" {
			toName = resolve(tx.To)
		}
		_, err := fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s\n",
			tx.ID,
			tx.Date.Format("2006-01-02"),
			quote(resolve(tx.User)),
			tx.Type,
			quote(tx.Category),
			quote(tx.Description),
			tx.Amount,
			quote(toName))
		if err != nil {
			return err
		}
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
