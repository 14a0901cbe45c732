// Package analyze runs the five enrichment classifiers over the fetched
// news items. Two passes are local pattern scans; three call the
// classifier model. Every pass persists its own partial workbook so an
// abandoned run leaves diagnosable results.
package analyze

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pressdesk/brandbatch/internal/config"
	"github.com/pressdesk/brandbatch/internal/resilience"
	"github.com/pressdesk/brandbatch/internal/sheet"
	"github.com/pressdesk/brandbatch/internal/table"
	"github.com/pressdesk/brandbatch/pkg/anthropic"
)

// Analyzer executes the enrichment passes. Zero value is not usable;
// construct with New.
type Analyzer struct {
	ai          anthropic.Client
	cfg         config.AnthropicConfig
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	breaker     *resilience.CircuitBreaker
	partialsDir string
	log         *zap.Logger
}

// New builds an Analyzer. partialsDir receives one xlsx per pass; an
// empty string disables partial persistence (tests).
func New(ai anthropic.Client, cfg config.AnthropicConfig, partialsDir string) *Analyzer {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1.0
	}
	log := zap.L().With(zap.String("component", "analyze"))

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	breakerCfg.ShouldTrip = resilience.IsTransient
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		log.Warn("classifier circuit state changed",
			zap.Stringer("from", from), zap.Stringer("to", to))
	}

	return &Analyzer{
		ai:          ai,
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		retry:       resilience.DefaultRetryConfig(),
		breaker:     resilience.NewCircuitBreaker(breakerCfg),
		partialsDir: partialsDir,
		log:         log,
	}
}

func (a *Analyzer) concurrency() int {
	if a.cfg.MaxConcurrent > 0 {
		return a.cfg.MaxConcurrent
	}
	return 4
}

// ask sends one classifier request, rate limited, retried on transient
// failures and guarded by the shared circuit breaker, and returns the
// first text block of the reply.
func (a *Analyzer) ask(ctx context.Context, operation, system, prompt string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "analyze: rate limiter")
	}

	temp := a.cfg.Temperature
	retry := a.retry
	retry.OnRetry = resilience.RetryLogger("anthropic", operation)

	resp, err := resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.ai.CreateMessage(ctx, anthropic.MessageRequest{
				Model:       a.cfg.Model,
				MaxTokens:   a.cfg.MaxTokens,
				System:      anthropic.BuildCachedSystemBlocks(system),
				Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
				Temperature: &temp,
			})
		})
	})
	if err != nil {
		return "", err
	}

	resp.Usage.LogCost(a.cfg.Model, operation)
	for _, block := range resp.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", nil
}

// warmPromptCache fires one primer request before a pass fans out so
// the workers read the cached system block instead of each paying to
// create it. The reply is discarded; a failed primer only costs the
// warm start.
func (a *Analyzer) warmPromptCache(ctx context.Context, operation, system, prompt string) {
	if err := a.limiter.Wait(ctx); err != nil {
		return
	}
	temp := a.cfg.Temperature
	resp, err := anthropic.PrimerRequest(ctx, a.ai, anthropic.MessageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(system),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		a.log.Warn("prompt cache primer failed",
			zap.String("operation", operation), zap.Error(err))
		return
	}
	resp.Usage.LogCost(a.cfg.Model, operation+"_primer")
}

// wordPattern compiles a case-insensitive whole-word pattern for term.
// Go's \b assertion is ASCII only and misses names that start or end
// on an accented letter, so the boundaries are spelled out.
func wordPattern(term string) *regexp.Regexp {
	boundary := `[^\p{L}\p{N}_]`
	return regexp.MustCompile(`(?i)(?:\A|` + boundary + `)` + regexp.QuoteMeta(term) + `(?:` + boundary + `|\z)`)
}

// fullText renders the prompt body the classifiers analyze: title and
// content under fixed Portuguese headings, matching the taxonomy the
// prompts were tuned against.
func fullText(title, content string) string {
	return fmt.Sprintf("Título: %s\n\nConteúdo: %s",
		strings.TrimSpace(title), strings.TrimSpace(content))
}

// persistPartial writes a pass's hit list to its partial workbook.
// Persistence failures are logged, not returned: losing a partial must
// not discard the in-memory results of a completed pass.
func (a *Analyzer) persistPartial(name string, headers []string, rows []map[string]string) {
	if a.partialsDir == "" {
		return
	}

	t := table.New(headers)
	for _, r := range rows {
		t.AppendRow(r)
	}

	path := filepath.Join(a.partialsDir, name+".xlsx")
	if err := sheet.Write(t, path); err != nil {
		a.log.Error("partial workbook not written",
			zap.String("pass", name), zap.Error(err))
		return
	}
	a.log.Info("partial workbook written",
		zap.String("pass", name), zap.Int("rows", len(rows)))
}
