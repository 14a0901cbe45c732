// Package pivot reshapes the filtered consolidated table from
// one-row-per-(news item, brand) into one-row-per-news-item with
// brand-prefixed enrichment columns.
package pivot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/model"
	"github.com/pressdesk/brandbatch/internal/table"
)

// brandTypo is a recurring upstream misspelling normalized to canonical
// casing before grouping, so "Ifood" and "iFood" rows merge.
const (
	brandTypo      = "Ifood"
	brandCanonical = "iFood"
)

// pivotGetters maps each declared pivot column to its row accessor. The
// column list is an explicit contract with the upstream schema; Pivot
// fails fast if a declared column has no accessor rather than silently
// reshaping the wrong fields.
var pivotGetters = map[string]func(r *model.ConsolidatedRow) *string{
	model.ColRegistered:   func(r *model.ConsolidatedRow) *string { return r.Registered },
	model.ColUnregistered: func(r *model.ConsolidatedRow) *string { return r.Unregistered },
	model.ColProminence:   func(r *model.ConsolidatedRow) *string { return r.Prominence },
	model.ColNoteText:     func(r *model.ConsolidatedRow) *string { return r.NoteText },
	model.ColSubject:      func(r *model.ConsolidatedRow) *string { return r.Subject },
}

// Pivot collapses duplicate (id, brand) keys and reshapes the table.
// A row missing its id or brand violates an upstream invariant and
// aborts the pivot.
func Pivot(rows []model.ConsolidatedRow) (*table.Table, error) {
	for i := range rows {
		if rows[i].News.ID == "" || !rows[i].Claimed() || *rows[i].Brand == "" {
			return nil, eris.Errorf("pivot: row %d lacks id or brand, composite key cannot be built", i)
		}
	}
	for _, col := range model.PivotColumns {
		if _, ok := pivotGetters[col]; !ok {
			return nil, eris.Errorf("pivot: declared pivot column %q has no accessor", col)
		}
	}

	rows = normalizeTypos(rows)
	rows = mergeDuplicateKeys(rows)
	sortByID(rows)

	return reshape(rows), nil
}

// normalizeTypos rewrites the known brand misspelling across every text
// field of every row. Case-sensitive substring replacement.
func normalizeTypos(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
	fix := func(s string) string {
		return strings.ReplaceAll(s, brandTypo, brandCanonical)
	}
	fixPtr := func(p *string) *string {
		if p == nil {
			return nil
		}
		return model.Str(fix(*p))
	}

	out := make([]model.ConsolidatedRow, len(rows))
	for i, r := range rows {
		n := r.News
		n.Title = fix(n.Title)
		n.Content = fix(n.Content)
		n.Outlet = fix(n.Outlet)
		n.Channels = fix(n.Channels)
		n.OutletClass = fix(n.OutletClass)

		out[i] = model.ConsolidatedRow{
			News:         n,
			Brand:        fixPtr(r.Brand),
			Registered:   fixPtr(r.Registered),
			Unregistered: fixPtr(r.Unregistered),
			Prominence:   fixPtr(r.Prominence),
			NoteText:     fixPtr(r.NoteText),
			Subject:      fixPtr(r.Subject),
			SubjectScore: fixPtr(r.SubjectScore),
		}
	}
	return out
}

// mergeDuplicateKeys collapses rows sharing a composite key into one row
// per key, each field taking the first non-null value in input order.
func mergeDuplicateKeys(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
	byKey := make(map[string]int)
	var out []model.ConsolidatedRow

	for _, r := range rows {
		key := r.Key()
		i, seen := byKey[key]
		if !seen {
			byKey[key] = len(out)
			out = append(out, r)
			continue
		}

		kept := &out[i]
		fill := func(dst **string, src *string) {
			if *dst == nil {
				*dst = src
			}
		}
		fill(&kept.Registered, r.Registered)
		fill(&kept.Unregistered, r.Unregistered)
		fill(&kept.Prominence, r.Prominence)
		fill(&kept.NoteText, r.NoteText)
		fill(&kept.Subject, r.Subject)
		fill(&kept.SubjectScore, r.SubjectScore)
	}

	if removed := len(rows) - len(out); removed > 0 {
		zap.L().Info("pivot: merged duplicate composite keys", zap.Int("removed", removed))
	}
	return out
}

func sortByID(rows []model.ConsolidatedRow) {
	sort.SliceStable(rows, func(a, b int) bool {
		ida, idb := rows[a].News.ID, rows[b].News.ID
		na, errA := strconv.ParseInt(ida, 10, 64)
		nb, errB := strconv.ParseInt(idb, 10, 64)
		if errA == nil && errB == nil {
			return na < nb
		}
		return ida < idb
	})
}

// reshape groups rows by news id and emits one output row per id with
// "{brand}_{column}" cells for each brand present. Column order follows
// first encounter, matching the row order of the sorted input.
func reshape(rows []model.ConsolidatedRow) *table.Table {
	headers := []string{model.ColID}
	known := map[string]bool{model.ColID: true}

	type record map[string]string
	var order []string
	records := make(map[string]record)

	for i := range rows {
		r := &rows[i]
		id := r.News.ID

		rec, ok := records[id]
		if !ok {
			rec = record{model.ColID: id}
			records[id] = rec
			order = append(order, id)
		}

		brand := r.BrandValue()
		if strings.TrimSpace(brand) == "" {
			continue
		}

		for _, col := range model.PivotColumns {
			name := brand + "_" + col
			if !known[name] {
				known[name] = true
				headers = append(headers, name)
			}
			rec[name] = model.StrValue(pivotGetters[col](r))
		}
	}

	out := table.New(headers)
	for _, id := range order {
		out.AppendRow(records[id])
	}

	zap.L().Info("pivot: reshape complete",
		zap.Int("news_items", out.Len()),
		zap.Int("columns", len(headers)),
	)
	return out
}
