// Package finalize turns the pivoted brand table into the publishable
// update batch: fallback subject filling, projection to the display
// column set, renames, ID scaffolding and reference lookups, then
// persistence with hyperlinked URLs.
package finalize

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/lookup"
	"github.com/pressdesk/brandbatch/internal/model"
	"github.com/pressdesk/brandbatch/internal/sheet"
	"github.com/pressdesk/brandbatch/internal/table"
)

// Display column names of the final batch.
const (
	colPrimarySubject  = "Rappi_Assunto"
	colJournalist      = "Jornalista/Fonte/Replicador/Autor"
	colViewURL         = "UrlVisualizacao"
	colOriginalURL     = "UrlOriginal"
	colTitle           = "Titulo"
	colNote            = "Nota do iFood"
	colEffort          = "Esforço"
	colSubjectSpecific = "Assunto Específico II"
)

// subjectFallbacks feed the primary subject column in priority order.
var subjectFallbacks = []string{
	"iFood_Assunto", "99_Assunto", "Outra Marca/Entidade_Assunto",
	"Meituan_Assunto", "99Food_Assunto", "Keeta_Assunto",
}

// keepColumns is the projection allow-list. Columns absent from the
// pivoted table are skipped, not errors.
var keepColumns = []string{
	model.ColID, "iFood_pv_cadastrados", "iFood_texto_nota", "iFood_Assunto",
	"iFood_nivel_protagonismo", "Rappi_nivel_protagonismo", "Rappi_Assunto",
	"DoorDash_nivel_protagonismo", "Meituan_nivel_protagonismo",
	"Keeta_nivel_protagonismo", "99_nivel_protagonismo",
	"Rappi_pv_cadastrados", "DoorDash_pv_cadastrados",
	"Meituan_pv_cadastrados", "Keeta_pv_cadastrados", "99_pv_cadastrados",
	"ID_pv_cadastrados", "ID_Rappi_pv_cadastrados", "ID_DoorDash_pv_cadastrados",
	"ID_Meituan_pv_cadastrados", "ID_Keeta_pv_cadastrados", "ID_99_pv_cadastrados",
	"ID_iFood_nivel_protagonismo", "ID_Rappi_nivel_protagonismo",
	"ID_DoorDash_nivel_protagonismo", "ID_Meituan_nivel_protagonismo",
	"ID_Keeta_nivel_protagonismo", "ID_99_nivel_protagonismo",
}

// displayRenames maps pivoted column names to their published headers.
// Domain and range are disjoint, so applying the map twice is a no-op.
var displayRenames = map[string]string{
	"iFood_pv_cadastrados":           "Porta-vozes iFood",
	"iFood_texto_nota":               colNote,
	"iFood_Assunto":                  "Assunto Específico",
	"iFood_nivel_protagonismo":       "Nível de Protagonismo iFood",
	"Rappi_nivel_protagonismo":       "Nivel de Protagonismo Rappi",
	colPrimarySubject:                colSubjectSpecific,
	"DoorDash_nivel_protagonismo":    "Nivel de Protagonismo DoorDash",
	"Meituan_nivel_protagonismo":     "Nivel de Protagonismo Meituan",
	"Keeta_nivel_protagonismo":       "Nivel de Protagonismo Keeta",
	"99_nivel_protagonismo":          "Nivel de Protagonismo 99",
	"Rappi_pv_cadastrados":           "Porta Vozes Rappi",
	"DoorDash_pv_cadastrados":        "Porta Vozes Doordash",
	"Meituan_pv_cadastrados":         "Porta Vozes Meituan",
	"Keeta_pv_cadastrados":           "Porta Vozes Keeta",
	"99_pv_cadastrados":              "Porta Vozes 99",
	"ID_pv_cadastrados":              "ID Porta-vozes iFood",
	"ID_Rappi_pv_cadastrados":        "ID Porta Vozes Rappi",
	"ID_DoorDash_pv_cadastrados":     "ID Porta Vozes Doordash",
	"ID_Meituan_pv_cadastrados":      "ID Porta Vozes Meituan",
	"ID_Keeta_pv_cadastrados":        "ID Porta Vozes Keeta",
	"ID_99_pv_cadastrados":           "ID Porta Vozes 99",
}

// idColumnTargets lists the display columns that carry an adjacent
// "ID {column}" scaffolding column, in display order.
var idColumnTargets = []string{
	colJournalist, "Porta-vozes iFood", colNote,
	"Assunto Específico", "Nível de Protagonismo iFood", "Nivel de Protagonismo Rappi",
	colSubjectSpecific, colEffort, "Nivel de Protagonismo DoorDash",
	"Nivel de Protagonismo Meituan", "Nivel de Protagonismo Keeta",
	"Nivel de Protagonismo 99", "Porta Vozes Rappi", "Porta Vozes Doordash",
	"Porta Vozes Meituan", "Porta Vozes Keeta", "Porta Vozes 99",
}

// prominenceColumns get their IDs from the prominence reference table.
var prominenceColumns = []string{
	"Nível de Protagonismo iFood", "Nivel de Protagonismo Rappi",
	"Nivel de Protagonismo DoorDash", "Nivel de Protagonismo Meituan",
	"Nivel de Protagonismo Keeta", "Nivel de Protagonismo 99",
}

// Lookups carries the reference tables the adjuster resolves against.
// They are loaded once per run and passed in, not cached globally.
type Lookups struct {
	Spokesperson *lookup.Table
	Prominence   *lookup.Table
	Effort       *lookup.Table
	Note         *lookup.Table
}

// Adjust applies the full final-adjustment sequence and returns the
// publishable table. The input table is not modified.
func Adjust(pivoted *table.Table, base []model.NewsItem, lookups Lookups) *table.Table {
	log := zap.L().With(zap.String("component", "finalize"))
	log.Info("adjusting final batch", zap.Int("rows", pivoted.Len()))

	t := fillPrimarySubject(clone(pivoted), log)
	t = projectAndJoin(t, base)
	t.Rename(displayRenames)
	booleanizeNote(t)
	injectEffort(t)
	addIDColumns(t)

	resolveSpokespersonIDs(t, lookups.Spokesperson, log)
	resolveColumns(t, prominenceColumns, lookups.Prominence, log, "prominence")
	resolveColumns(t, []string{colEffort}, lookups.Effort, log, "effort")
	resolveColumns(t, []string{colNote}, lookups.Note, log, "note")

	log.Info("final batch ready", zap.Int("rows", t.Len()), zap.Int("columns", len(t.Headers())))
	return t
}

func clone(t *table.Table) *table.Table {
	return t.Project(t.Headers())
}

// fillPrimarySubject fills a blank primary subject cell with the first
// non-blank value among the fallback subject columns, in declared order.
func fillPrimarySubject(t *table.Table, log *zap.Logger) *table.Table {
	// InsertAfter appends when the anchor is absent, which also covers
	// a pivoted table that never saw a Rappi row.
	t.InsertAfter(colPrimarySubject, colPrimarySubject)

	filled := 0
	t.Each(func(row int) {
		if strings.TrimSpace(t.Get(row, colPrimarySubject)) != "" {
			return
		}
		for _, col := range subjectFallbacks {
			if !t.HasColumn(col) {
				continue
			}
			if v := t.Get(row, col); strings.TrimSpace(v) != "" {
				t.Set(row, colPrimarySubject, v)
				filled++
				break
			}
		}
	})
	log.Info("primary subject backfilled", zap.Int("rows", filled))
	return t
}

// projectAndJoin keeps the allow-listed columns, adds the blank
// journalist column, and left-joins URL and title data from the base
// entities, placing them directly after the id column.
func projectAndJoin(t *table.Table, base []model.NewsItem) *table.Table {
	out := t.Project(keepColumns)
	out.InsertAfter(model.ColID, colJournalist)

	byID := make(map[string]model.NewsItem, len(base))
	for _, item := range base {
		if _, seen := byID[item.ID]; !seen {
			byID[item.ID] = item
		}
	}

	out.InsertAfter(model.ColID, colTitle)
	out.InsertAfter(model.ColID, colOriginalURL)
	out.InsertAfter(model.ColID, colViewURL)
	out.Each(func(row int) {
		item, ok := byID[out.Get(row, model.ColID)]
		if !ok {
			return
		}
		out.Set(row, colViewURL, item.ViewURL)
		out.Set(row, colOriginalURL, item.OriginalURL)
		out.Set(row, colTitle, item.Title)
	})
	return out
}

// booleanizeNote collapses the free-text note column to Sim/Não.
func booleanizeNote(t *table.Table) {
	if !t.HasColumn(colNote) {
		return
	}
	t.Each(func(row int) {
		if strings.TrimSpace(t.Get(row, colNote)) == "" {
			t.Set(row, colNote, "Não")
		} else {
			t.Set(row, colNote, "Sim")
		}
	})
}

// injectEffort adds the constant effort column after the secondary
// subject column. Every batch row is reactive monitoring output.
func injectEffort(t *table.Table) {
	t.InsertAfter(colSubjectSpecific, colEffort)
	t.Each(func(row int) {
		t.Set(row, colEffort, "Reativo")
	})
}

// addIDColumns inserts an "ID {column}" placeholder before each target
// column. Targets are walked in reverse so insertions do not shift the
// positions still to process. Existing ID columns are left untouched,
// which keeps reprocessing an already scaffolded workbook stable.
func addIDColumns(t *table.Table) {
	var present []string
	for _, name := range idColumnTargets {
		if t.HasColumn(name) {
			present = append(present, name)
		}
	}
	for i := len(present) - 1; i >= 0; i-- {
		t.InsertBefore(present[i], "ID "+present[i])
	}
}

// resolveSpokespersonIDs is intentionally a no-op: spokesperson IDs are
// filled upstream where the hits are produced. Kept so the four lookup
// resolutions stay symmetric.
func resolveSpokespersonIDs(_ *table.Table, _ *lookup.Table, log *zap.Logger) {
	log.Info("spokesperson IDs already resolved upstream")
}

// resolveColumns writes reference IDs next to each named column that has
// a scaffolded ID column. A label missing from the reference table
// leaves the ID cell blank.
func resolveColumns(t *table.Table, columns []string, lkp *lookup.Table, log *zap.Logger, kind string) {
	if lkp == nil || lkp.Len() == 0 {
		log.Warn("reference table empty, leaving IDs blank", zap.String("kind", kind))
		return
	}

	resolved := 0
	for _, col := range columns {
		idCol := "ID " + col
		if !t.HasColumn(col) || !t.HasColumn(idCol) {
			continue
		}
		t.Each(func(row int) {
			value := strings.TrimSpace(t.Get(row, col))
			if value == "" {
				return
			}
			if id, ok := lkp.Resolve(value); ok {
				t.Set(row, idCol, id)
				resolved++
			}
		})
	}
	log.Info("reference IDs applied", zap.String("kind", kind), zap.Int("cells", resolved))
}

// Persist writes the final table to the canonical path and to a
// timestamped snapshot beside it, both with the view URL rendered as a
// hyperlink. Returns the snapshot path.
func Persist(t *table.Table, canonicalPath string, now time.Time) (string, error) {
	if err := sheet.WriteWithHyperlinks(t, canonicalPath, colViewURL); err != nil {
		return "", eris.Wrap(err, "finalize: write canonical output")
	}

	stamp := now.Format("20060102_150405")
	snapshot := filepath.Join(filepath.Dir(canonicalPath),
		"Tabela_atualizacao_em_lote_limpo_"+stamp+".xlsx")
	if err := sheet.WriteWithHyperlinks(t, snapshot, colViewURL); err != nil {
		return "", eris.Wrap(err, "finalize: write snapshot")
	}

	zap.L().Info("final batch persisted",
		zap.String("canonical", canonicalPath),
		zap.String("snapshot", snapshot),
	)
	return snapshot, nil
}
