package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/config"
	"github.com/pressdesk/brandbatch/internal/resilience"
	"github.com/pressdesk/brandbatch/internal/sheet"
	"github.com/pressdesk/brandbatch/internal/table"
)

func newFastClient() *Client {
	return &Client{
		http: &http.Client{Timeout: 5 * time.Second},
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
		log: zap.NewNop(),
	}
}

func TestFetchDecodesAndStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`[
			{"Id": "10", "Titulo": "Expansão", "Conteudo": "<p>O <b>iFood</b> cresceu.</p>",
			 "Veiculo": "Jornal A", "Detalhes": {"Regiao": "Sul"}}
		]`))
	}))
	defer srv.Close()

	c := newFastClient()
	res, err := c.Fetch(context.Background(), []config.SourceEndpoint{
		{Name: "favoritos", URL: srv.URL, Body: map[string]any{"periodo": 7}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	assert.Equal(t, "10", res.Items[0].ID)
	assert.Equal(t, "O iFood cresceu.", res.Items[0].Content)

	require.Equal(t, 1, res.Full.Len())
	assert.Equal(t, "O iFood cresceu.", res.Full.Get(0, "Conteudo"))
	assert.Equal(t, "Sul", res.Full.Get(0, "Detalhes.Regiao"), "nested objects flatten with dotted keys")
}

func TestFetchAcceptsNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Id": 123, "Titulo": "t", "Conteudo": "c"}]`))
	}))
	defer srv.Close()

	c := newFastClient()
	res, err := c.Fetch(context.Background(), []config.SourceEndpoint{
		{Name: "numeric", URL: srv.URL},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "123", res.Items[0].ID)
	assert.Equal(t, "123", res.Full.Get(0, "Id"), "flattened view renders the id the same way")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"Id": "1", "Titulo": "t", "Conteudo": "c"}]`))
	}))
	defer srv.Close()

	c := newFastClient()
	res, err := c.Fetch(context.Background(), []config.SourceEndpoint{
		{Name: "flaky", URL: srv.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, res.Items, 1)
}

func TestFetchSkipsDeadSource(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Id": "2", "Titulo": "t", "Conteudo": "c"}]`))
	}))
	defer alive.Close()

	c := newFastClient()
	res, err := c.Fetch(context.Background(), []config.SourceEndpoint{
		{Name: "dead", URL: dead.URL},
		{Name: "alive", URL: alive.URL},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "2", res.Items[0].ID)
}

func TestFetchAllSourcesFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newFastClient()
	_, err := c.Fetch(context.Background(), []config.SourceEndpoint{
		{Name: "dead", URL: srv.URL},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records recovered")
}

func TestFetchNoSources(t *testing.T) {
	c := newFastClient()
	_, err := c.Fetch(context.Background(), nil)
	require.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "texto simples", StripHTML("texto simples"))
	assert.Equal(t, "O iFood cresceu.", StripHTML("<div><p>O iFood</p> <p>cresceu.</p></div>"))
	assert.Equal(t, "visível", StripHTML("<p>visível</p><script>alert(1)</script>"))
}

func TestRenderScalar(t *testing.T) {
	assert.Equal(t, "", renderScalar(nil))
	assert.Equal(t, "42", renderScalar(float64(42)))
	assert.Equal(t, "4.5", renderScalar(4.5))
	assert.Equal(t, "true", renderScalar(true))
	assert.Equal(t, `["a","b"]`, renderScalar([]any{"a", "b"}))
}

func TestPersistWritesBothWorkbooks(t *testing.T) {
	full := table.New([]string{"Id", "Titulo", "Conteudo", "IdVeiculo", "Canais", "Extra"})
	full.AppendRow(map[string]string{
		"Id": "1", "Titulo": "t", "Conteudo": "c",
		"IdVeiculo": "9", "Canais": "['Institucional']", "Extra": "x",
	})

	dir := t.TempDir()
	fullPath := filepath.Join(dir, "base.xlsx")
	smallPath := filepath.Join(dir, "base_small.xlsx")

	c := newFastClient()
	require.NoError(t, c.Persist(&Result{Full: full}, fullPath, smallPath))

	small, err := sheet.Read(smallPath)
	require.NoError(t, err)
	assert.Equal(t, smallColumns, small.Headers())
	assert.Equal(t, "['Institucional']", small.Get(0, "Canais"))
	assert.False(t, small.HasColumn("Extra"))
}

func TestPersistMissingColumnsYieldsEmptySmall(t *testing.T) {
	full := table.New([]string{"Id", "Titulo"})
	full.AppendRow(map[string]string{"Id": "1", "Titulo": "t"})

	dir := t.TempDir()
	c := newFastClient()
	require.NoError(t, c.Persist(&Result{Full: full},
		filepath.Join(dir, "base.xlsx"), filepath.Join(dir, "small.xlsx")))

	small, err := sheet.Read(filepath.Join(dir, "small.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, smallColumns, small.Headers())
	assert.Equal(t, 0, small.Len())
}
