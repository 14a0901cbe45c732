package model

// Sentinel values produced by the pass classifiers. They flow through the
// data model as ordinary values and are filtered downstream, never raised
// as errors.
const (
	// SentinelNoSpokesperson marks a news item where the registered
	// spokesperson scan found nothing.
	SentinelNoSpokesperson = "Sem porta-voz"

	// SentinelNoneIdentified is the classifier's "no finding" answer for
	// the unregistered spokesperson pass.
	SentinelNoneIdentified = "Nenhum porta-voz identificado"

	// SentinelEmptyContent marks an item with no title and no body.
	SentinelEmptyContent = "Conteúdo Vazio"

	// SentinelAPIError and SentinelProcessError mark classifier failures.
	SentinelAPIError     = "Erro na API"
	SentinelProcessError = "Erro de Processamento"

	// SentinelNoBrand is the reserved "not applicable" brand tag removed
	// by the validity filter.
	SentinelNoBrand = "NÃO"

	// SentinelOtherEntity tags a note attributed to no tracked brand.
	SentinelOtherEntity = "Outra Marca/Entidade"

	// SentinelUndefined marks a news item no brand gate matched during
	// the prominence pass.
	SentinelUndefined = "INDEFINIDO"
)

// SpokespersonHit is one registered-spokesperson detection: a known name
// found in the content of a news item.
type SpokespersonHit struct {
	ID           string `json:"id"`
	Title        string `json:"titulo"`
	Media        string `json:"midia"`
	Outlet       string `json:"veiculo"`
	Spokesperson string `json:"porta_voz"`
	Brand        string `json:"marca"`
	PersonID     string `json:"id_porta_voz,omitempty"`
}

// UnregisteredHit is one spokesperson surfaced by the classifier that is
// not in the registered lookup table. Spokesperson may carry a sentinel.
type UnregisteredHit struct {
	ID           string `json:"id"`
	Title        string `json:"titulo"`
	Media        string `json:"midia"`
	Outlet       string `json:"veiculo"`
	Spokesperson string `json:"porta_voz"`
	Brand        string `json:"marca"`
}

// ProminenceHit is one (news item, brand) prominence classification.
type ProminenceHit struct {
	ID    string `json:"id"`
	Brand string `json:"marca"`
	Level string `json:"nivel"`
}

// NoteHit is one official-note detection attributed to a brand.
type NoteHit struct {
	ID       string `json:"id"`
	Title    string `json:"titulo"`
	Media    string `json:"midia"`
	Outlet   string `json:"veiculo"`
	Brand    string `json:"marca"`
	NoteText string `json:"texto_nota"`
}

// SubjectHit maps a news item to a specific subject line.
type SubjectHit struct {
	ID          string `json:"id"`
	Subject     string `json:"assunto"`
	Methodology string `json:"metodologia_aplicada,omitempty"`
}
