package model

import "strings"

// ConsolidatedRow is the mutable working record of the reconciler: one
// (news item, brand) pairing plus every enrichment fact attached so far.
// A row with a nil Brand is the unclaimed placeholder for its news item.
// Enrichment fields are pointers so that "never set" and "set to empty"
// stay distinguishable through the pivot merge.
type ConsolidatedRow struct {
	News NewsItem

	Brand *string

	Registered   *string // registered spokesperson name
	Unregistered *string // spokesperson found by the classifier
	Prominence   *string // prominence level label
	NoteText     *string // official note excerpt
	Subject      *string
	SubjectScore *string
}

// Claimed reports whether the row has been attributed to a brand.
func (r *ConsolidatedRow) Claimed() bool {
	return r.Brand != nil
}

// BrandValue returns the brand tag or "" for an unclaimed row.
func (r *ConsolidatedRow) BrandValue() string {
	if r.Brand == nil {
		return ""
	}
	return *r.Brand
}

// Key returns the composite (entity, brand) key. Unclaimed rows key on
// the entity id alone.
func (r *ConsolidatedRow) Key() string {
	return r.News.ID + "_" + r.BrandValue()
}

// CloneBase returns a copy of the row carrying only the immutable base
// attributes; brand and enrichment fields start unset.
func (r *ConsolidatedRow) CloneBase() ConsolidatedRow {
	return ConsolidatedRow{News: r.News}
}

// Str returns a pointer to s. Convenience for building rows.
func Str(s string) *string {
	return &s
}

// StrValue dereferences p, returning "" for nil.
func StrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// IsBlank reports whether p is nil or whitespace-only.
func IsBlank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}
