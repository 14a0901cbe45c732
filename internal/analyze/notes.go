package analyze

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/model"
)

// noteExpressions are the Portuguese phrasings that introduce an
// official statement. Matched case-insensitively against title plus
// content; the first match wins.
var noteExpressions = func() []*regexp.Regexp {
	phrases := []string{
		"em nota",
		"disse em nota",
		"informou em nota",
		"afirmou em nota",
		"comunicou em nota",
		"declarou em nota",
		"por meio de nota",
		"o iFood informou",
		"o Rappi informou",
		"o DoorDash informou",
		"o Meituan informou",
		"a Keeta informou",
		"a 99 informou",
		"a 99Food informou",
		"o iFood disse",
		"o Rappi disse",
		"o DoorDash disse",
		"o Meituan disse",
		"a Keeta disse",
		"a 99 disse",
		"a 99Food disse",
		"segundo o iFood",
		"segundo o Rappi",
		"segundo o DoorDash",
		"segundo o Meituan",
		"segundo a Keeta",
		"segundo a 99",
		"segundo a 99Food",
		"de acordo com o iFood",
		"de acordo com o Rappi",
		"de acordo com o DoorDash",
		"de acordo com o Meituan",
		"de acordo com a Keeta",
		"de acordo com a 99",
		"de acordo com a 99Food",
	}
	out := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p))
	}
	return out
}()

const noteExcerptLimit = 500

// AnalyzeNotes finds official-note statements in each item and
// attributes the captured excerpt to the brands named inside it. An
// excerpt naming no tracked brand is tagged with the other-entity
// sentinel; items with no note expression get the no-brand sentinel.
// Both sentinel categories are excluded from the returned hits.
func (a *Analyzer) AnalyzeNotes(news []model.NewsItem, brands []string) []model.NoteHit {
	a.log.Info("scanning for official notes", zap.Int("news", len(news)))

	brandPatterns := make(map[string]*regexp.Regexp, len(brands))
	for _, b := range brands {
		brandPatterns[b] = wordPattern(b)
	}

	var all []model.NoteHit
	for _, item := range news {
		text := fullText(item.Title, item.Content)

		matched := false
		for _, expr := range noteExpressions {
			loc := expr.FindStringIndex(text)
			if loc == nil {
				continue
			}
			matched = true

			excerpt := strings.TrimSpace(text[loc[1]:])
			if utf8.RuneCountInString(excerpt) > noteExcerptLimit {
				excerpt = string([]rune(excerpt)[:noteExcerptLimit]) + "..."
			}

			var named []string
			for _, b := range brands {
				if brandPatterns[b].MatchString(excerpt) {
					named = append(named, b)
				}
			}

			if len(named) == 0 {
				named = []string{model.SentinelOtherEntity}
			}
			for _, b := range named {
				all = append(all, model.NoteHit{
					ID:       item.ID,
					Title:    strings.TrimSpace(item.Title),
					Media:    item.Media,
					Outlet:   item.Outlet,
					Brand:    b,
					NoteText: excerpt,
				})
			}
			break
		}

		if !matched {
			all = append(all, model.NoteHit{
				ID:     item.ID,
				Title:  strings.TrimSpace(item.Title),
				Media:  item.Media,
				Outlet: item.Outlet,
				Brand:  model.SentinelNoBrand,
			})
		}
	}

	// Keep first per (id, brand), then drop the sentinel categories.
	seen := make(map[string]bool)
	var hits []model.NoteHit
	for _, h := range all {
		key := h.ID + "\x00" + h.Brand
		if seen[key] {
			continue
		}
		seen[key] = true
		if h.Brand == model.SentinelNoBrand || h.Brand == model.SentinelOtherEntity {
			continue
		}
		hits = append(hits, h)
	}

	rows := make([]map[string]string, len(hits))
	for i, h := range hits {
		rows[i] = map[string]string{
			"Id": h.ID, "Titulo": h.Title, "Midia": h.Media,
			"Veiculo": h.Outlet, "Marca": h.Brand, "Texto_Nota": h.NoteText,
		}
	}
	a.persistPartial("notas_identificadas",
		[]string{"Id", "Titulo", "Midia", "Veiculo", "Marca", "Texto_Nota"}, rows)

	a.log.Info("note scan complete",
		zap.Int("attributed", len(hits)), zap.Int("scanned", len(news)))
	return hits
}
