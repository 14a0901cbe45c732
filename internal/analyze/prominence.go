package analyze

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pressdesk/brandbatch/internal/model"
	"github.com/pressdesk/brandbatch/internal/sheet"
)

const prominenceSystem = "Você é um analista de conteúdo especializado em classificar notícias por nível de protagonismo de uma marca específica, analisando tanto o título quanto o conteúdo."

const prominencePromptTemplate = `Considere os seguintes níveis de protagonismo e seus conceitos:

%s

Analise o seguinte texto de notícia (contendo Título e Conteúdo) e determine a qual Nível de Protagonismo a marca "%s" se enquadra melhor DENTRO DESTA NOTÍCIA.
Considere como a marca "%s" é mencionada e qual papel ela desempenha no conteúdo, incluindo a análise do título conforme os conceitos de cada nível.
Responda SOMENTE com o Nível correspondente (por exemplo: Nível 1, Nível 2, etc.).
Se a marca "%s" não for mencionada de forma relevante ou o conteúdo não se enquadrar em nenhum dos níveis apresentados PARA ESSA MARCA ESPECÍFICA, responda 'Nenhum Nível Encontrado'.

Texto da Notícia:
%s`

// levelNames maps the classifier's short answers to display names.
// Unknown answers pass through unchanged.
var levelNames = map[string]string{
	"Nível 1": "Protagonista",
	"Nível 2": "Referência em Matéria de Concorrente",
	"Nível 3": "Referência Contextual/Setor",
	"Nível 4": "Citação Relevante",
	"Nível 5": "Figurante",
}

// defaultConcepts backs the prompt when no concepts workbook is
// configured.
const defaultConcepts = `Nível 1: Protagonista - Marca é o foco principal da notícia
Nível 2: Referência em Matéria de Concorrente - Marca mencionada ao falar de concorrente
Nível 3: Referência Contextual/Setor - Marca citada no contexto do setor
Nível 4: Citação Relevante - Marca mencionada de forma relevante
Nível 5: Figurante - Marca apenas citada`

// LoadConcepts renders the prominence concepts workbook into prompt
// text. A missing or malformed file falls back to the built-in
// concepts with a warning.
func LoadConcepts(path string) string {
	if path == "" {
		return defaultConcepts
	}
	t, err := sheet.Read(path)
	if err != nil || !t.HasColumn("Nivel") || !t.HasColumn("Conceito") {
		zap.L().Warn("analyze: concepts workbook unavailable, using built-in concepts",
			zap.String("path", path), zap.Error(err))
		return defaultConcepts
	}

	var lines []string
	t.Each(func(row int) {
		lines = append(lines, t.Get(row, "Nivel")+": "+t.Get(row, "Conceito"))
	})
	return strings.Join(lines, "\n")
}

// shouldProcessBrand gates which brands get a prominence call for an
// item. iFood and 99 have dedicated institutional channel markers;
// other brands must appear in the channels field.
func shouldProcessBrand(brand, channels, text string) bool {
	switch brand {
	case "iFood":
		return strings.Contains(channels, "'Institucional'") || strings.Contains(text, "iFood")
	case "99":
		return strings.Contains(channels, "'Institucional 99'") || strings.Contains(text, "99")
	}
	return wordPattern(brand).MatchString(channels)
}

// AnalyzeProminence classifies how prominently each gated brand figures
// in each news item. Items where no brand passes the gate get one
// undefined sentinel hit. Classifier failures become the API-error
// sentinel level rather than aborting the pass.
func (a *Analyzer) AnalyzeProminence(ctx context.Context, news []model.NewsItem, brands []string, concepts string) ([]model.ProminenceHit, error) {
	a.log.Info("classifying brand prominence", zap.Int("news", len(news)))
	if concepts == "" {
		concepts = defaultConcepts
	}

	if len(news) > 1 && len(brands) > 0 {
		first := fmt.Sprintf(prominencePromptTemplate, concepts,
			brands[0], brands[0], brands[0], fullText(news[0].Title, news[0].Content))
		a.warmPromptCache(ctx, "prominence", prominenceSystem, first)
	}

	var (
		mu  sync.Mutex
		all []model.ProminenceHit
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())

	for _, item := range news {
		g.Go(func() error {
			if strings.TrimSpace(item.Title) == "" && strings.TrimSpace(item.Content) == "" {
				return nil
			}
			text := fullText(item.Title, item.Content)

			var local []model.ProminenceHit
			for _, brand := range brands {
				if !shouldProcessBrand(brand, item.Channels, text) {
					continue
				}

				prompt := fmt.Sprintf(prominencePromptTemplate, concepts, brand, brand, brand, text)
				answer, err := a.ask(ctx, "prominence", prominenceSystem, prompt)
				if err != nil {
					if ctx.Err() != nil {
						return err
					}
					a.log.Warn("prominence classification failed",
						zap.String("id", item.ID), zap.String("brand", brand), zap.Error(err))
					answer = model.SentinelAPIError
				}
				level := strings.TrimSpace(strings.ReplaceAll(answer, ":", ""))
				if mapped, ok := levelNames[level]; ok {
					level = mapped
				}
				local = append(local, model.ProminenceHit{ID: item.ID, Brand: brand, Level: level})
			}

			if len(local) == 0 {
				local = append(local, model.ProminenceHit{
					ID:    item.ID,
					Brand: model.SentinelUndefined,
					Level: model.SentinelUndefined,
				})
			}

			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Keep first per (id, brand).
	seen := make(map[string]bool)
	var hits []model.ProminenceHit
	for _, h := range all {
		key := h.ID + "\x00" + h.Brand
		if seen[key] {
			continue
		}
		seen[key] = true
		hits = append(hits, h)
	}

	rows := make([]map[string]string, len(hits))
	for i, h := range hits {
		rows[i] = map[string]string{"Id": h.ID, "Marca": h.Brand, "Nivel": h.Level}
	}
	a.persistPartial("nivel_protagonismo", []string{"Id", "Marca", "Nivel"}, rows)

	a.log.Info("prominence classification complete", zap.Int("hits", len(hits)))
	return hits, nil
}
