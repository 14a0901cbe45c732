// Package lookup resolves categorical labels to stable identifiers using
// externally supplied reference workbooks.
package lookup

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pressdesk/brandbatch/internal/sheet"
)

// Reference workbook column names shared by every lookup file.
const (
	ColLabel     = "Resposta"
	ColLabelID   = "ID Resposta"
	ColQualifier = "Coluna/Opção Adicional"
)

// Qualifier prefixes that tie a lookup entry to a brand. Upstream files
// are inconsistent about hyphenation and casing, so all three spellings
// are accepted.
var brandPrefixes = []string{"Porta Vozes ", "Porta-vozes ", "Porta-Vozes "}

// Entry is one reference row: a label, its identifier, and the brand
// derived from the qualifier column when one applies.
type Entry struct {
	Label string
	ID    string
	Brand string
}

// Table maps trimmed labels to identifiers. Matching is exact and
// case-sensitive as loaded; a miss is an expected outcome, not an error.
type Table struct {
	byLabel map[string]Entry
	entries []Entry
}

// NewTable builds a lookup table from entries. Blank labels are skipped;
// a duplicate label keeps the later entry, matching load order semantics
// of the source workbooks.
func NewTable(entries []Entry) *Table {
	t := &Table{byLabel: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		label := strings.TrimSpace(e.Label)
		if label == "" {
			continue
		}
		e.Label = label
		t.byLabel[label] = e
		t.entries = append(t.entries, e)
	}
	return t
}

// Load reads a lookup workbook. A missing file yields an empty table and
// a warning; the caller falls back to leaving ID columns blank.
func Load(path string) *Table {
	tbl, err := sheet.Read(path)
	if err != nil {
		zap.L().Warn("lookup: reference file unavailable",
			zap.String("path", path), zap.Error(err))
		return NewTable(nil)
	}
	if !tbl.HasColumn(ColLabel) {
		zap.L().Warn("lookup: reference file lacks label column",
			zap.String("path", path), zap.String("column", ColLabel))
		return NewTable(nil)
	}

	var entries []Entry
	tbl.Each(func(row int) {
		entries = append(entries, Entry{
			Label: tbl.Get(row, ColLabel),
			ID:    tbl.Get(row, ColLabelID),
			Brand: BrandFromQualifier(tbl.Get(row, ColQualifier)),
		})
	})

	t := NewTable(entries)
	zap.L().Info("lookup: reference table loaded",
		zap.String("path", path), zap.Int("entries", t.Len()))
	return t
}

// Resolve trims the label and returns its identifier. The second return
// is false on a miss.
func (t *Table) Resolve(label string) (string, bool) {
	e, ok := t.byLabel[strings.TrimSpace(label)]
	if !ok {
		return "", false
	}
	return e.ID, true
}

// Entries returns the loaded entries in load order.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Len returns the number of distinct labels.
func (t *Table) Len() int {
	return len(t.byLabel)
}

// BrandFromQualifier derives a brand from a qualifier value by stripping
// the first matching spokesperson prefix. Values without a known prefix
// carry no brand.
func BrandFromQualifier(qualifier string) string {
	for _, prefix := range brandPrefixes {
		if strings.HasPrefix(qualifier, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(qualifier, prefix))
		}
	}
	return ""
}

var stripAccents = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize folds a label for accent- and case-insensitive comparison:
// trim, decompose and drop combining marks, lowercase. Used by the
// spokesperson ID postprocessing, which matches on normalized names.
func Normalize(s string) string {
	folded, _, err := transform.String(stripAccents, strings.TrimSpace(s))
	if err != nil {
		folded = strings.TrimSpace(s)
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
