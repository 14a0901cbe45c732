// Package ingest fetches news items from the configured monitoring API
// endpoints and normalizes the JSON payloads into the run's base table.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/config"
	"github.com/pressdesk/brandbatch/internal/model"
	"github.com/pressdesk/brandbatch/internal/resilience"
	"github.com/pressdesk/brandbatch/internal/sheet"
	"github.com/pressdesk/brandbatch/internal/table"
)

// smallColumns is the trimmed projection persisted next to the full
// payload for spot checks.
var smallColumns = []string{"Id", "Titulo", "Conteudo", "IdVeiculo", "Canais"}

// Client POSTs the monitoring API endpoints and decodes the replies.
type Client struct {
	http  *http.Client
	retry resilience.RetryConfig
	log   *zap.Logger
}

// New builds a Client with a 30 second request timeout.
func New() *Client {
	return &Client{
		http:  &http.Client{Timeout: 30 * time.Second},
		retry: resilience.DefaultRetryConfig(),
		log:   zap.L().With(zap.String("component", "ingest")),
	}
}

// Result carries both views of one fetch: the typed items the enrichment
// passes consume and the flattened full table persisted as-is.
type Result struct {
	Items []model.NewsItem
	Full  *table.Table
}

// Fetch POSTs every configured endpoint, retrying transient failures,
// and concatenates the decoded payloads. Endpoints that still fail
// after retries are skipped with a warning so one dead source does not
// lose the rest of the run.
func (c *Client) Fetch(ctx context.Context, sources []config.SourceEndpoint) (*Result, error) {
	if len(sources) == 0 {
		return nil, eris.New("ingest: no source endpoints configured")
	}

	res := &Result{Full: table.New(nil)}
	for _, src := range sources {
		payload, err := c.fetchOne(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.log.Warn("source endpoint failed, skipping",
				zap.String("source", src.Name), zap.Error(err))
			continue
		}
		c.append(res, payload)
		c.log.Info("source fetched",
			zap.String("source", src.Name), zap.Int("total", len(res.Items)))
	}

	if len(res.Items) == 0 {
		return nil, eris.New("ingest: no records recovered from any source")
	}
	return res, nil
}

func (c *Client) fetchOne(ctx context.Context, src config.SourceEndpoint) ([]byte, error) {
	body, err := json.Marshal(src.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: encode request body for %s", src.Name)
	}

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("source", src.Name)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, src.URL, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: build request for %s", src.Name)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: post %s", src.URL)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("ingest: %s returned status %d", src.URL, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read response from %s", src.URL)
		}
		return data, nil
	})
}

// append decodes one endpoint payload into both result views. Conteudo
// arrives as rendered HTML and is stripped to plain text before the
// enrichment passes see it.
func (c *Client) append(res *Result, payload []byte) {
	var items []model.NewsItem
	if err := json.Unmarshal(payload, &items); err != nil {
		c.log.Warn("payload is not a news item array, skipping", zap.Error(err))
		return
	}
	for _, item := range items {
		item.Content = StripHTML(item.Content)
		res.Items = append(res.Items, item)
	}

	var raw []map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return
	}
	for _, record := range raw {
		flat := make(map[string]string)
		flatten("", record, flat)
		if html, ok := flat["Conteudo"]; ok {
			flat["Conteudo"] = StripHTML(html)
		}
		for _, col := range sortedKeys(flat) {
			if !res.Full.HasColumn(col) {
				res.Full.InsertAfter("", col)
			}
		}
		res.Full.AppendRow(flat)
	}
}

// flatten joins nested object keys with dots, one level per segment.
// Arrays and other non-object values are rendered as scalars.
func flatten(prefix string, value any, out map[string]string) {
	obj, ok := value.(map[string]any)
	if !ok {
		out[prefix] = renderScalar(value)
		return
	}
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		flatten(key, v, out)
	}
}

func renderScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StripHTML reduces an HTML fragment to its visible text. Inputs with
// no markup pass through untouched; unparseable inputs are returned
// as-is rather than dropped.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

// Persist writes the full payload workbook and the trimmed projection.
// A payload missing any of the trimmed columns produces an empty small
// workbook with the expected headers, matching what review tooling
// reads.
func (c *Client) Persist(res *Result, fullPath, smallPath string) error {
	if err := sheet.Write(res.Full, fullPath); err != nil {
		return eris.Wrap(err, "ingest: write full workbook")
	}

	small := res.Full.Project(smallColumns)
	if len(small.Headers()) != len(smallColumns) {
		c.log.Warn("payload missing trimmed columns",
			zap.Strings("want", smallColumns), zap.Strings("have", small.Headers()))
		small = table.New(smallColumns)
	}
	if err := sheet.Write(small, smallPath); err != nil {
		return eris.Wrap(err, "ingest: write small workbook")
	}

	c.log.Info("base workbooks written",
		zap.String("full", fullPath), zap.String("small", smallPath),
		zap.Int("records", res.Full.Len()))
	return nil
}
