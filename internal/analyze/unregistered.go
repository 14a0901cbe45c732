package analyze

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pressdesk/brandbatch/internal/model"
)

const unregisteredSystem = "Você é um analista de conteúdo especializado em identificar porta-vozes e as entidades que representam em textos de notícias."

const unregisteredPromptTemplate = `Analise o seguinte texto de notícia (contendo Título e Conteúdo) e identifique todos os nomes de indivíduos mencionados que parecem ser porta-vozes ou fontes relevantes para alguma marca ou entidade citada na notícia.

Para cada indivíduo identificado que parece estar falando em nome de uma marca/entidade:
- Informe o nome do indivíduo.
- Informe a marca ou entidade em nome da qual ele parece estar falando, com base no contexto da notícia.

Se nenhum indivíduo for identificado como porta-voz relevante, responda apenas "Nenhum porta-voz identificado".

Formato da resposta esperado: Liste os indivíduos e suas marcas no formato "Nome do Porta-Voz: Marca/Entidade". Se houver múltiplos porta-vozes, liste cada um em uma nova linha.

Texto da Notícia:
%s`

// FindUnregistered asks the classifier for spokespersons in the items
// the registered scan left uncovered. Only hits naming a tracked brand
// survive; sentinel results (empty content, no finding, API error) are
// produced but filtered before return, matching what the consolidation
// pass expects.
func (a *Analyzer) FindUnregistered(ctx context.Context, ids []string, news []model.NewsItem, validBrands []string) ([]model.UnregisteredHit, error) {
	byID := make(map[string]model.NewsItem, len(news))
	for _, item := range news {
		if _, ok := byID[item.ID]; !ok {
			byID[item.ID] = item
		}
	}

	var pending []model.NewsItem
	seenID := make(map[string]bool)
	for _, id := range ids {
		if seenID[id] {
			continue
		}
		seenID[id] = true
		if item, ok := byID[id]; ok {
			pending = append(pending, item)
		}
	}
	a.log.Info("searching for unregistered spokespersons", zap.Int("pending", len(pending)))

	if len(pending) > 1 {
		first := fmt.Sprintf(unregisteredPromptTemplate, fullText(pending[0].Title, pending[0].Content))
		a.warmPromptCache(ctx, "unregistered", unregisteredSystem, first)
	}

	var (
		mu  sync.Mutex
		all []model.UnregisteredHit
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())

	for _, item := range pending {
		g.Go(func() error {
			local := a.findInItem(ctx, item)
			if ctx.Err() != nil {
				return ctx.Err()
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

	valid := model.NewBrandSet(validBrands)
	var hits []model.UnregisteredHit
	for _, h := range all {
		if h.Spokesperson == model.SentinelProcessError {
			continue
		}
		if !valid.Contains(h.Brand) {
			continue
		}
		hits = append(hits, h)
	}

	rows := make([]map[string]string, len(hits))
	for i, h := range hits {
		rows[i] = map[string]string{
			"Id": h.ID, "Titulo": h.Title, "Midia": h.Media,
			"Veiculo": h.Outlet, "Porta_Voz": h.Spokesperson, "Marca": h.Brand,
		}
	}
	a.persistPartial("porta_vozes_nao_cadastrados",
		[]string{"Id", "Titulo", "Midia", "Veiculo", "Porta_Voz", "Marca"}, rows)

	a.log.Info("unregistered spokesperson search complete",
		zap.Int("hits", len(hits)), zap.Int("raw", len(all)))
	return hits, nil
}

func (a *Analyzer) findInItem(ctx context.Context, item model.NewsItem) []model.UnregisteredHit {
	base := model.UnregisteredHit{
		ID:     item.ID,
		Title:  strings.TrimSpace(item.Title),
		Media:  item.Media,
		Outlet: item.Outlet,
	}

	if base.Title == "" && strings.TrimSpace(item.Content) == "" {
		base.Spokesperson = model.SentinelEmptyContent
		return []model.UnregisteredHit{base}
	}

	prompt := fmt.Sprintf(unregisteredPromptTemplate, fullText(item.Title, item.Content))
	answer, err := a.ask(ctx, "unregistered", unregisteredSystem, prompt)
	if err != nil {
		a.log.Warn("unregistered search failed",
			zap.String("id", item.ID), zap.Error(err))
		base.Spokesperson = model.SentinelAPIError
		return []model.UnregisteredHit{base}
	}

	if answer == model.SentinelNoneIdentified {
		base.Spokesperson = model.SentinelNoneIdentified
		return []model.UnregisteredHit{base}
	}

	var hits []model.UnregisteredHit
	for _, line := range strings.Split(answer, "\n") {
		name, brand, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h := base
		h.Spokesperson = strings.TrimSpace(name)
		h.Brand = strings.TrimSpace(brand)
		hits = append(hits, h)
	}
	return hits
}
