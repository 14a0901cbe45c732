package analyze

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/lookup"
	"github.com/pressdesk/brandbatch/internal/model"
)

// IdentifySpokespersons scans each news item for registered spokesperson
// names from the reference table. A name matches on word boundaries,
// case-insensitively. Items with no match produce one sentinel hit so
// the unregistered pass knows which items still need a spokesperson.
func (a *Analyzer) IdentifySpokespersons(news []model.NewsItem, people *lookup.Table) []model.SpokespersonHit {
	type person struct {
		name    string
		brand   string
		id      string
		pattern *regexp.Regexp
	}

	var roster []person
	for _, e := range people.Entries() {
		roster = append(roster, person{
			name:    e.Label,
			brand:   e.Brand,
			id:      e.ID,
			pattern: wordPattern(e.Label),
		})
	}
	a.log.Info("scanning for registered spokespersons",
		zap.Int("news", len(news)), zap.Int("roster", len(roster)))

	seen := make(map[string]bool)
	var hits []model.SpokespersonHit
	add := func(h model.SpokespersonHit) {
		key := h.ID + "\x00" + h.Brand + "\x00" + h.Spokesperson
		if seen[key] {
			return
		}
		seen[key] = true
		hits = append(hits, h)
	}

	for _, item := range news {
		found := false
		for _, p := range roster {
			if !p.pattern.MatchString(item.Content) {
				continue
			}
			found = true
			add(model.SpokespersonHit{
				ID:           item.ID,
				Title:        item.Title,
				Media:        item.Media,
				Outlet:       item.Outlet,
				Spokesperson: p.name,
				Brand:        p.brand,
				PersonID:     p.id,
			})
		}

		if !found {
			add(model.SpokespersonHit{
				ID:           item.ID,
				Title:        item.Title,
				Media:        item.Media,
				Outlet:       item.Outlet,
				Spokesperson: model.SentinelNoSpokesperson,
			})
		}
	}

	a.persistPartial("porta_vozes_identificados",
		[]string{"Id", "Titulo", "Midia", "Veiculo", "Porta_Voz", "Marca", "ID_Porta_Voz"},
		spokespersonRows(hits))
	a.log.Info("registered spokesperson scan complete", zap.Int("hits", len(hits)))
	return hits
}

func spokespersonRows(hits []model.SpokespersonHit) []map[string]string {
	rows := make([]map[string]string, len(hits))
	for i, h := range hits {
		rows[i] = map[string]string{
			"Id":           h.ID,
			"Titulo":       h.Title,
			"Midia":        h.Media,
			"Veiculo":      h.Outlet,
			"Porta_Voz":    h.Spokesperson,
			"Marca":        h.Brand,
			"ID_Porta_Voz": h.PersonID,
		}
	}
	return rows
}
