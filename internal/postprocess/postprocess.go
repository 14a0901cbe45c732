// Package postprocess fills the "ID ..." spokesperson columns of a
// published workbook from the spokesperson lookup table. It runs over
// workbooks that already left the pipeline, so unresolved names go to a
// report instead of failing the command.
package postprocess

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/lookup"
	"github.com/pressdesk/brandbatch/internal/sheet"
)

// spokespersonColumn matches the name columns holding spokesperson
// values. Their "ID " counterparts are excluded.
var spokespersonColumn = regexp.MustCompile(`(?i)porta`)

// Report lists every spokesperson name the lookup could not resolve.
type Report struct {
	Rows []ReportRow
}

// ReportRow is one unresolved name with its location in the workbook.
type ReportRow struct {
	Row    int
	Column string
	Name   string
}

// Result describes where the updated workbook and the report landed.
type Result struct {
	OutputPath string
	ReportPath string
	Resolved   int
	NotFound   int
}

// Process reads the workbook at inputPath, resolves each spokesperson
// name against the lookup by accent-folded exact match, and writes the
// "ID <column>" values as ";"-joined IDs. When inplace is false the
// output gets a timestamped sibling name.
func Process(inputPath, lookupPath string, inplace bool, now time.Time) (*Result, error) {
	log := zap.L().With(zap.String("component", "postprocess"))

	t, err := sheet.Read(inputPath)
	if err != nil {
		return nil, eris.Wrapf(err, "postprocess: read %s", inputPath)
	}

	people := lookup.Load(lookupPath)
	byNormalized := make(map[string]string, people.Len())
	for _, e := range people.Entries() {
		byNormalized[lookup.Normalize(e.Label)] = e.ID
	}

	var candidates []string
	for _, h := range t.Headers() {
		if spokespersonColumn.MatchString(h) && !strings.HasPrefix(strings.ToLower(h), "id ") {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		log.Warn("no spokesperson columns detected", zap.String("input", inputPath))
		return &Result{OutputPath: inputPath}, nil
	}

	report := &Report{}
	resolved := 0
	for _, col := range candidates {
		idCol := "ID " + col
		t.InsertAfter(col, idCol)

		t.Each(func(row int) {
			name := strings.TrimSpace(t.Get(row, col))
			if name == "" {
				return
			}

			if id, ok := byNormalized[lookup.Normalize(name)]; ok {
				t.Set(row, idCol, joinIDs(t.Get(row, idCol), id))
				resolved++
				return
			}
			report.Rows = append(report.Rows, ReportRow{Row: row, Column: col, Name: name})
		})
	}

	outputPath := inputPath
	if !inplace {
		outputPath = timestampedSibling(inputPath, "_with_ids_", now)
	}
	if err := sheet.Write(t, outputPath); err != nil {
		return nil, eris.Wrapf(err, "postprocess: write %s", outputPath)
	}

	res := &Result{
		OutputPath: outputPath,
		Resolved:   resolved,
		NotFound:   len(report.Rows),
	}
	if len(report.Rows) > 0 {
		reportPath := strings.TrimSuffix(timestampedSibling(inputPath, "_spokesperson_report_", now),
			filepath.Ext(inputPath)) + ".csv"
		if err := writeReport(report, reportPath); err != nil {
			return nil, err
		}
		res.ReportPath = reportPath
		log.Info("spokesperson report written",
			zap.String("path", reportPath), zap.Int("not_found", len(report.Rows)))
	} else {
		log.Info("all spokesperson names resolved")
	}

	log.Info("workbook updated",
		zap.String("output", outputPath), zap.Int("resolved", resolved))
	return res, nil
}

// joinIDs appends id to an existing ";"-joined cell, skipping repeats.
func joinIDs(existing, id string) string {
	if existing == "" {
		return id
	}
	for _, got := range strings.Split(existing, ";") {
		if got == id {
			return existing
		}
	}
	return existing + ";" + id
}

func timestampedSibling(path, infix string, now time.Time) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	name := stem + infix + now.Format("20060102_150405") + ext
	return filepath.Join(filepath.Dir(path), name)
}

func writeReport(report *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "postprocess: create report %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write([]string{"row", "col", "name", "type"}); err != nil {
		return eris.Wrap(err, "postprocess: write report header")
	}
	for _, r := range report.Rows {
		record := []string{strconv.Itoa(r.Row), r.Column, r.Name, "not_found"}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "postprocess: write report row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "postprocess: flush report")
}
