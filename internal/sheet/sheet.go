// Package sheet reads and writes the pipeline's xlsx workbooks.
package sheet

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/table"
)

const defaultSheetName = "Sheet1"

// Read loads the first sheet of an xlsx file into a table, treating the
// first row as headers. Reference workbooks exported by hand routinely
// arrive with a blank leading row or column; those are stripped before
// the header row is taken.
func Read(path string) (*table.Table, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	rows = trimLeading(rows)
	if len(rows) == 0 {
		return table.New(nil), nil
	}

	headers := rows[0]
	t := table.New(headers)
	for _, cells := range rows[1:] {
		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				values[h] = cells[i]
			}
		}
		t.AppendRow(values)
	}
	return t, nil
}

func readRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("sheet: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// trimLeading drops a fully blank first row and then a fully blank first
// column, at most one of each.
func trimLeading(rows [][]string) [][]string {
	if len(rows) > 0 && allBlank(rows[0]) {
		rows = rows[1:]
		zap.L().Info("sheet: removed blank leading row")
	}

	blankCol := len(rows) > 0
	for _, r := range rows {
		if len(r) > 0 && strings.TrimSpace(r[0]) != "" {
			blankCol = false
			break
		}
	}
	if blankCol {
		trimmed := make([][]string, len(rows))
		for i, r := range rows {
			if len(r) > 0 {
				trimmed[i] = r[1:]
			}
		}
		rows = trimmed
		zap.L().Info("sheet: removed blank leading column")
	}
	return rows
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Write persists a table as a single-sheet xlsx file.
func Write(t *table.Table, path string) error {
	f, _, err := buildFile(t)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "sheet: save %s", path)
	}
	return nil
}

// WriteWithHyperlinks persists a table rendering the named URL column as
// a clickable "Abrir URL" link in blue underlined type. Rows whose URL
// cell is blank keep a plain empty cell.
func WriteWithHyperlinks(t *table.Table, path, urlColumn string) error {
	f, sh, err := buildFile(t)
	if err != nil {
		return err
	}

	urlIdx := -1
	for i, h := range t.Headers() {
		if h == urlColumn {
			urlIdx = i
			break
		}
	}
	if urlIdx >= 0 {
		style := xlsx.NewStyle()
		style.Font = *xlsx.NewFont(11, "Calibri")
		style.Font.Color = "FF0000FF"
		style.Font.Underline = true
		style.ApplyFont = true

		t.Each(func(row int) {
			url := t.Get(row, urlColumn)
			if strings.TrimSpace(url) == "" {
				return
			}
			cell := sh.Rows[row+1].Cells[urlIdx]
			cell.SetFormula(fmt.Sprintf("HYPERLINK(%q,%q)", url, "Abrir URL"))
			cell.SetStyle(style)
		})
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "sheet: save %s", path)
	}
	return nil
}

func buildFile(t *table.Table) (*xlsx.File, *xlsx.Sheet, error) {
	f := xlsx.NewFile()
	sh, err := f.AddSheet(defaultSheetName)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sheet: add sheet")
	}

	head := sh.AddRow()
	for _, h := range t.Headers() {
		head.AddCell().SetString(h)
	}
	t.Each(func(row int) {
		r := sh.AddRow()
		for _, h := range t.Headers() {
			r.AddCell().SetString(t.Get(row, h))
		}
	})
	return f, sh, nil
}
