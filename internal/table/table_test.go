package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRowAndGet(t *testing.T) {
	tbl := New([]string{"Id", "Marca"})
	tbl.AppendRow(map[string]string{"Id": "1", "Marca": "iFood", "Ignored": "x"})

	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, "1", tbl.Get(0, "Id"))
	assert.Equal(t, "iFood", tbl.Get(0, "Marca"))
	assert.Equal(t, "", tbl.Get(0, "Ignored"))
}

func TestInsertAfterAndBefore(t *testing.T) {
	tbl := New([]string{"a", "b", "c"})
	tbl.AppendRow(map[string]string{"a": "1", "b": "2", "c": "3"})

	tbl.InsertAfter("a", "x")
	tbl.InsertBefore("c", "y")

	assert.Equal(t, []string{"a", "x", "b", "y", "c"}, tbl.Headers())
	assert.Equal(t, "2", tbl.Get(0, "b"))
	assert.Equal(t, "", tbl.Get(0, "x"))
}

func TestInsertExistingColumnIsNoop(t *testing.T) {
	tbl := New([]string{"a", "b"})
	tbl.InsertAfter("a", "b")
	assert.Equal(t, []string{"a", "b"}, tbl.Headers())
}

func TestRenameIdempotent(t *testing.T) {
	tbl := New([]string{"old", "keep"})
	mapping := map[string]string{"old": "new"}

	tbl.Rename(mapping)
	tbl.Rename(mapping)

	assert.Equal(t, []string{"new", "keep"}, tbl.Headers())
}

func TestProjectKeepsOrderAndSkipsMissing(t *testing.T) {
	tbl := New([]string{"a", "b", "c"})
	tbl.AppendRow(map[string]string{"a": "1", "b": "2", "c": "3"})

	out := tbl.Project([]string{"c", "missing", "a"})
	assert.Equal(t, []string{"c", "a"}, out.Headers())
	assert.Equal(t, "3", out.Get(0, "c"))
	assert.Equal(t, "1", out.Get(0, "a"))
}

func TestMoveAfter(t *testing.T) {
	tbl := New([]string{"Id", "x", "Url", "Titulo"})
	tbl.AppendRow(map[string]string{"Id": "1", "x": "v", "Url": "u", "Titulo": "t"})

	require.NoError(t, tbl.MoveAfter("Id", []string{"Url", "Titulo"}))
	assert.Equal(t, []string{"Id", "Url", "Titulo", "x"}, tbl.Headers())
	assert.Equal(t, "v", tbl.Get(0, "x"))
}

func TestMoveAfterMissingAnchor(t *testing.T) {
	tbl := New([]string{"a"})
	assert.Error(t, tbl.MoveAfter("nope", []string{"a"}))
}

func TestSortByNumericAware(t *testing.T) {
	tbl := New([]string{"Id"})
	for _, id := range []string{"10", "2", "1"} {
		tbl.AppendRow(map[string]string{"Id": id})
	}

	tbl.SortBy("Id")
	assert.Equal(t, "1", tbl.Get(0, "Id"))
	assert.Equal(t, "2", tbl.Get(1, "Id"))
	assert.Equal(t, "10", tbl.Get(2, "Id"))
}

func TestDrop(t *testing.T) {
	tbl := New([]string{"a", "b", "c"})
	tbl.AppendRow(map[string]string{"a": "1", "b": "2", "c": "3"})

	tbl.Drop("b")
	assert.Equal(t, []string{"a", "c"}, tbl.Headers())
	assert.Equal(t, "3", tbl.Get(0, "c"))
}
