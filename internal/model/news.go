package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// NewsItem is one news article as delivered by the monitoring API.
// Loaded once per run and never mutated afterwards.
type NewsItem struct {
	ID          string `json:"Id"`
	Title       string `json:"Titulo"`
	Media       string `json:"Midia"`
	Content     string `json:"Conteudo"`
	ViewURL     string `json:"UrlVisualizacao"`
	OriginalURL string `json:"UrlOriginal,omitempty"`
	PublishedAt string `json:"DataVeiculacao"`
	Outlet      string `json:"Veiculo"`
	Channels    string `json:"Canais"`
	OutletClass string `json:"ClassificacaoVeiculo"`
	Rating      string `json:"Avaliacao"`
}

// UnmarshalJSON decodes a news item accepting Id as either a JSON
// string or a number. The monitoring endpoints disagree on which form
// they serve.
func (n *NewsItem) UnmarshalJSON(data []byte) error {
	type plain NewsItem
	aux := struct {
		ID json.RawMessage `json:"Id"`
		*plain
	}{plain: (*plain)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case len(aux.ID) == 0 || string(aux.ID) == "null":
		n.ID = ""
	case aux.ID[0] == '"':
		if err := json.Unmarshal(aux.ID, &n.ID); err != nil {
			return eris.Wrap(err, "model: decode news item id")
		}
	default:
		var id json.Number
		if err := json.Unmarshal(aux.ID, &id); err != nil {
			return eris.Wrap(err, "model: decode news item id")
		}
		n.ID = id.String()
	}
	return nil
}

// DefaultBrands is the fixed set of competing brands tracked per news item.
var DefaultBrands = []string{"iFood", "Rappi", "DoorDash", "Meituan", "Keeta", "99", "99Food"}

// BrandSet answers membership queries against a brand list.
type BrandSet map[string]struct{}

// NewBrandSet builds a BrandSet from a slice of brand names.
func NewBrandSet(brands []string) BrandSet {
	s := make(BrandSet, len(brands))
	for _, b := range brands {
		s[b] = struct{}{}
	}
	return s
}

// Contains reports whether brand is a member of the set.
func (s BrandSet) Contains(brand string) bool {
	_, ok := s[brand]
	return ok
}
