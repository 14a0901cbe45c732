// Package reconcile merges the per-pass analysis results into the
// consolidated (news item, brand) table. Five ordered passes either update
// an existing row in place or clone an existing row for a newly discovered
// brand; ordering is a correctness requirement because later passes need
// the rows earlier passes created as match targets.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/model"
)

// Inputs carries the hit lists produced by the five analysis passes.
type Inputs struct {
	Spokespersons []model.SpokespersonHit
	Unregistered  []model.UnregisteredHit
	Prominence    []model.ProminenceHit
	Notes         []model.NoteHit
	Subjects      []model.SubjectHit
}

// Pass is one reconciliation stage. Apply takes a snapshot of the
// consolidated table and returns the next snapshot; it never fails — a
// pass given unusable input returns its snapshot unchanged and logs a
// warning, so the pipeline proceeds with whatever enrichment succeeded.
type Pass struct {
	Name  string
	Apply func(rows []model.ConsolidatedRow) []model.ConsolidatedRow
}

// Reconciler folds the ordered pass list over the consolidated table.
type Reconciler struct {
	brands model.BrandSet
}

// New creates a Reconciler that recognizes the given brand set.
func New(brands model.BrandSet) *Reconciler {
	return &Reconciler{brands: brands}
}

// Reconcile seeds one unclaimed row per news item and applies the five
// passes in order, returning the consolidated table.
func (r *Reconciler) Reconcile(news []model.NewsItem, in Inputs) []model.ConsolidatedRow {
	rows := Initialize(news)
	zap.L().Info("reconcile: initialized consolidated table", zap.Int("rows", len(rows)))

	for _, pass := range r.Passes(in) {
		before := len(rows)
		rows = pass.Apply(rows)
		zap.L().Info("reconcile: pass complete",
			zap.String("pass", pass.Name),
			zap.Int("rows_before", before),
			zap.Int("rows_after", len(rows)),
		)
	}
	return rows
}

// Passes returns the ordered pass list for the given inputs.
func (r *Reconciler) Passes(in Inputs) []Pass {
	return []Pass{
		{Name: "registered_spokespersons", Apply: func(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
			return applySpokespersons(rows, in.Spokespersons)
		}},
		{Name: "unregistered_spokespersons", Apply: func(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
			return applyUnregistered(rows, in.Unregistered, r.brands)
		}},
		{Name: "prominence_levels", Apply: func(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
			return applyProminence(rows, in.Prominence)
		}},
		{Name: "official_notes", Apply: func(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
			return applyNotes(rows, in.Notes)
		}},
		{Name: "subjects", Apply: func(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
			return applySubjects(rows, in.Subjects)
		}},
	}
}

// Initialize builds the starting table: one unclaimed row per news item.
func Initialize(news []model.NewsItem) []model.ConsolidatedRow {
	rows := make([]model.ConsolidatedRow, 0, len(news))
	for _, n := range news {
		rows = append(rows, model.ConsolidatedRow{News: n})
	}
	return rows
}

// applySpokespersons is the claim-and-duplicate pass: each registered
// spokesperson hit clones the unclaimed row for its news item into a
// claimed (brand, spokesperson) row. Once any hit claims an item, the
// unclaimed placeholder is removed. Hits referencing an id with no base
// row are logged and dropped rather than synthesized.
func applySpokespersons(rows []model.ConsolidatedRow, hits []model.SpokespersonHit) []model.ConsolidatedRow {
	if len(hits) == 0 {
		zap.L().Warn("reconcile: registered spokesperson input empty, pass skipped")
		return rows
	}

	byID := make(map[string]int, len(rows))
	for i, row := range rows {
		if _, ok := byID[row.News.ID]; !ok {
			byID[row.News.ID] = i
		}
	}

	type hitKey struct{ id, brand, name string }
	seen := make(map[hitKey]bool)

	var claimed []model.ConsolidatedRow
	claimedIDs := make(map[string]bool)
	var missing int

	for _, h := range hits {
		if h.Spokesperson == model.SentinelNoSpokesperson {
			continue
		}
		k := hitKey{h.ID, h.Brand, h.Spokesperson}
		if seen[k] {
			continue
		}
		seen[k] = true

		i, ok := byID[h.ID]
		if !ok {
			missing++
			zap.L().Warn("reconcile: spokesperson hit without base row",
				zap.String("id", h.ID),
				zap.String("spokesperson", h.Spokesperson),
			)
			continue
		}

		dup := rows[i]
		dup.Brand = model.Str(h.Brand)
		dup.Registered = model.Str(h.Spokesperson)
		claimed = append(claimed, dup)
		claimedIDs[h.ID] = true
	}

	out := make([]model.ConsolidatedRow, 0, len(rows)+len(claimed))
	for _, row := range rows {
		if claimedIDs[row.News.ID] {
			continue
		}
		out = append(out, row)
	}
	out = append(out, claimed...)

	zap.L().Info("reconcile: registered spokespersons consolidated",
		zap.Int("claimed_rows", len(claimed)),
		zap.Int("unmatched_ids", missing),
	)
	return out
}

// updateOrCreate is the shared shape of passes 2-4: update the row with
// the exact (id, brand) key, or clone the first row for the id under the
// new brand. onCreate runs on newly created rows after the clone.
func updateOrCreate(
	rows []model.ConsolidatedRow,
	id, brand string,
	set func(r *model.ConsolidatedRow),
	onCreate func(r *model.ConsolidatedRow),
) ([]model.ConsolidatedRow, bool) {
	updated := false
	for i := range rows {
		if rows[i].News.ID == id && rows[i].BrandValue() == brand && rows[i].Claimed() {
			rows[i].Brand = model.Str(brand)
			set(&rows[i])
			updated = true
		}
	}
	if updated {
		return rows, true
	}

	for i := range rows {
		if rows[i].News.ID == id {
			created := rows[i]
			created.Brand = model.Str(brand)
			set(&created)
			if onCreate != nil {
				onCreate(&created)
			}
			return append(rows, created), true
		}
	}

	// No row at all for this id: the hit is dropped.
	return rows, false
}

// applyUnregistered consolidates classifier-found spokespersons. Sentinel
// findings and brands outside the tracked set are excluded up front.
func applyUnregistered(rows []model.ConsolidatedRow, hits []model.UnregisteredHit, brands model.BrandSet) []model.ConsolidatedRow {
	if len(hits) == 0 {
		zap.L().Warn("reconcile: unregistered spokesperson input empty, pass skipped")
		return rows
	}

	type hitKey struct{ id, brand, name string }
	seen := make(map[hitKey]bool)
	var updates, creates int

	for _, h := range hits {
		switch h.Spokesperson {
		case model.SentinelNoneIdentified, model.SentinelEmptyContent,
			model.SentinelAPIError, model.SentinelProcessError:
			continue
		}
		if !brands.Contains(h.Brand) {
			continue
		}
		k := hitKey{h.ID, h.Brand, h.Spokesperson}
		if seen[k] {
			continue
		}
		seen[k] = true

		before := len(rows)
		var ok bool
		rows, ok = updateOrCreate(rows, h.ID, h.Brand, func(r *model.ConsolidatedRow) {
			r.Unregistered = model.Str(h.Spokesperson)
		}, nil)
		if !ok {
			continue
		}
		if len(rows) > before {
			creates++
		} else {
			updates++
		}
	}

	zap.L().Info("reconcile: unregistered spokespersons consolidated",
		zap.Int("updated", updates),
		zap.Int("created", creates),
	)
	return rows
}

// applyProminence consolidates prominence levels. Rows created for a
// newly discovered brand start with both spokesperson fields cleared to
// empty: a brand surfacing here has no spokesperson data of its own.
func applyProminence(rows []model.ConsolidatedRow, hits []model.ProminenceHit) []model.ConsolidatedRow {
	if len(hits) == 0 {
		zap.L().Warn("reconcile: prominence input empty, pass skipped")
		return rows
	}

	type hitKey struct{ id, brand, level string }
	seen := make(map[hitKey]bool)
	var updates, creates int

	for _, h := range hits {
		k := hitKey{h.ID, h.Brand, h.Level}
		if seen[k] {
			continue
		}
		seen[k] = true

		before := len(rows)
		var ok bool
		rows, ok = updateOrCreate(rows, h.ID, h.Brand, func(r *model.ConsolidatedRow) {
			r.Prominence = model.Str(h.Level)
		}, func(r *model.ConsolidatedRow) {
			r.Registered = model.Str("")
			r.Unregistered = model.Str("")
		})
		if !ok {
			continue
		}
		if len(rows) > before {
			creates++
		} else {
			updates++
		}
	}

	zap.L().Info("reconcile: prominence levels consolidated",
		zap.Int("updated", updates),
		zap.Int("created", creates),
	)
	return rows
}

// applyNotes consolidates official note texts, keyed by (id, brand) only.
func applyNotes(rows []model.ConsolidatedRow, hits []model.NoteHit) []model.ConsolidatedRow {
	if len(hits) == 0 {
		zap.L().Warn("reconcile: notes input empty, pass skipped")
		return rows
	}

	type hitKey struct{ id, brand string }
	seen := make(map[hitKey]bool)
	var updates, creates int

	for _, h := range hits {
		k := hitKey{h.ID, h.Brand}
		if seen[k] {
			continue
		}
		seen[k] = true

		before := len(rows)
		var ok bool
		rows, ok = updateOrCreate(rows, h.ID, h.Brand, func(r *model.ConsolidatedRow) {
			r.NoteText = model.Str(h.NoteText)
		}, nil)
		if !ok {
			continue
		}
		if len(rows) > before {
			creates++
		} else {
			updates++
		}
	}

	zap.L().Info("reconcile: notes consolidated",
		zap.Int("updated", updates),
		zap.Int("created", creates),
	)
	return rows
}

// applySubjects overwrites the subject of every row sharing a news id,
// ignoring brands entirely. Duplicate ids in the source collapse to
// last-write-wins before the map is built, so the pass is idempotent.
func applySubjects(rows []model.ConsolidatedRow, hits []model.SubjectHit) []model.ConsolidatedRow {
	if len(hits) == 0 {
		zap.L().Warn("reconcile: subject input empty, pass skipped")
		return rows
	}

	subjects := make(map[string]string, len(hits))
	for _, h := range hits {
		subjects[h.ID] = h.Subject
	}

	var updated int
	for i := range rows {
		if subject, ok := subjects[rows[i].News.ID]; ok {
			rows[i].Subject = model.Str(subject)
			updated++
		}
	}

	zap.L().Info("reconcile: subjects consolidated", zap.Int("updated", updated))
	return rows
}
