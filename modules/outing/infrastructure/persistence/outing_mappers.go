package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
)

// Column layout of a record row, A through O.
var Columns = [...]string{
	"id", "name", "title", "reason", "place", "date", "activity", "detail", "time", "lineid",
	"status", "comment", "ip", "ua", "timestamp",
}

const (
	idColumn      = 0
	statusColumn  = 10
	commentColumn = 11
	lastColumn    = len(Columns) - 1 // O
)

// ColumnLetter converts a zero based column index to its A1 letter.
func ColumnLetter(idx int) string {
	var s string
	for idx >= 0 {
		s = string(rune('A'+idx%26)) + s
		idx = idx/26 - 1
	}
	return s
}

// QuoteSheetName quotes name for use in an A1 range when needed.
func QuoteSheetName(name string) string {
	if name == "" {
		return name
	}
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

func recordRange(sheet string) string {
	return fmt.Sprintf("%s!%s:%s", QuoteSheetName(sheet), ColumnLetter(idColumn), ColumnLetter(lastColumn))
}

func decisionRange(sheet string, row int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", QuoteSheetName(sheet),
		ColumnLetter(statusColumn), row, ColumnLetter(commentColumn), row)
}

// ToRow serializes a record into the fixed column order.
func ToRow(r *outingrequest.Record) []interface{} {
	s := r.Submission
	return []interface{}{
		r.ID,
		s.Name, s.Title, s.Reason, s.Place, s.Date, s.Activity, s.Detail, s.Time, s.LineID,
		string(r.Status),
		r.Comment,
		r.ClientIP,
		r.UserAgent,
		r.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

// ToRecord parses a row read back from the store. Trailing empty cells may be
// missing; they read as empty strings.
func ToRecord(row []interface{}) *outingrequest.Record {
	cell := func(i int) string {
		if i >= len(row) || row[i] == nil {
			return ""
		}
		return fmt.Sprint(row[i])
	}
	rec := &outingrequest.Record{
		ID: cell(0),
		Submission: outingrequest.Submission{
			Name:     cell(1),
			Title:    cell(2),
			Reason:   cell(3),
			Place:    cell(4),
			Date:     cell(5),
			Activity: cell(6),
			Detail:   cell(7),
			Time:     cell(8),
			LineID:   cell(9),
		},
		Status:    outingrequest.Status(cell(statusColumn)),
		Comment:   cell(commentColumn),
		ClientIP:  cell(12),
		UserAgent: cell(13),
	}
	if ts, err := time.Parse(time.RFC3339, cell(14)); err == nil {
		rec.SubmittedAt = ts
	}
	return rec
}

func interfaceRow(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// findRow returns the 1-based sheet row of the first row whose id column
// equals id. origin is the sheet row of rows[0].
func findRow(rows [][]interface{}, id string, origin int) (int, []interface{}, bool) {
	for i, row := range rows {
		if len(row) > idColumn && fmt.Sprint(row[idColumn]) == id {
			return origin + i, row, true
		}
	}
	return 0, nil, false
}
