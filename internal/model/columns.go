package model

// Column names of the consolidated working table. These are the upstream
// platform's header contract and must survive round-trips through the
// persisted spreadsheets unchanged.
const (
	ColID           = "Id"
	ColTitle        = "Titulo"
	ColMedia        = "Midia"
	ColContent      = "Conteudo"
	ColViewURL      = "UrlVisualizacao"
	ColOriginalURL  = "UrlOriginal"
	ColPublishedAt  = "DataVeiculacao"
	ColOutlet       = "Veiculo"
	ColChannels     = "Canais"
	ColOutletClass  = "ClassificacaoVeiculo"
	ColRating       = "Avaliacao"
	ColBrand        = "Marca"
	ColRegistered   = "pv_cadastrados"
	ColUnregistered = "pv_nao_cadastrados"
	ColProminence   = "nivel_protagonismo"
	ColNoteText     = "texto_nota"
	ColSubject      = "Assunto"
	ColSubjectScore = "score_similaridade_assunto"
)

// BaseColumns is the column order of the news base attributes.
var BaseColumns = []string{
	ColID, ColTitle, ColMedia, ColContent, ColViewURL,
	ColPublishedAt, ColOutlet, ColChannels, ColOutletClass, ColRating,
}

// ConsolidatedColumns is the full header of the consolidated table:
// base attributes, then the brand tag, then the enrichment fields.
var ConsolidatedColumns = []string{
	ColID, ColTitle, ColMedia, ColContent, ColViewURL,
	ColPublishedAt, ColOutlet, ColChannels, ColOutletClass, ColRating,
	ColBrand,
	ColRegistered, ColUnregistered, ColProminence, ColNoteText,
	ColSubject, ColSubjectScore,
}

// PivotColumns names the enrichment columns that fan out into
// brand-prefixed copies during the pivot. The upstream schema declares
// exactly these as brand-pivotable; the pivoter validates the list
// against the table header before reshaping.
var PivotColumns = []string{
	ColRegistered, ColUnregistered, ColProminence, ColNoteText, ColSubject,
}
