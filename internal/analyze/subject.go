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

const subjectSystem = "Você é um especialista em análise de notícias sobre estabelecimentos comerciais e serviços de delivery."

const subjectContextExamples = `Exemplos de frases que indicam uso das plataformas iFood/Rappi:

ATENDIMENTO DIRETO:
- "O grupo possui unidades no Rio Vermelho e Alphaville, além de delivery via iFood."
- "Além do buffet, há pratos à la carte com entrega via iFood e Rappi."

CONTEXTO COMERCIAL/ESTRATÉGICO:
- "Em 2024, a empresa cresceu 20% e ampliou seus canais de venda com a entrada no iFood."
- "produtos também estarão à venda via e-commerce, na página da WeCoffee no iFood"

PARCERIAS/COLABORAÇÕES:
- "O Rappi também participa, surpreendendo usuários com ações especiais"`

const subjectPromptTemplate = `Você é um especialista em análise de notícias sobre estabelecimentos comerciais e serviços de delivery.

Sua tarefa é analisar a notícia fornecida e identificar se ela menciona um estabelecimento específico que utiliza ou oferece serviços através das plataformas iFood e/ou Rappi.

**CRITÉRIOS PARA IDENTIFICAÇÃO:**
1. A notícia deve focar em um estabelecimento específico (restaurante, lanchonete, cafeteria, farmácia, etc.)
2. Deve mencionar que o estabelecimento utiliza iFood e/ou Rappi de alguma forma
3. O estabelecimento deve ser o foco principal da notícia

**FORMATO DA RESPOSTA:**
Se a notícia atender aos critérios, responda:
SIM | [Nome do Estabelecimento] atende via [plataforma(s)]

Se NÃO atender:
NÃO | Não se enquadra nos critérios

**CONTEXTO ADICIONAL:**
%s

Texto da Notícia:
%s`

const subjectMethodology = "Estabelecimento Atende Delivery"

// IdentifySubjects tags news items focused on an establishment served
// by the delivery platforms. Only affirmative classifications produce a
// hit; failures and negatives are skipped.
func (a *Analyzer) IdentifySubjects(ctx context.Context, news []model.NewsItem) ([]model.SubjectHit, error) {
	a.log.Info("identifying delivery establishments", zap.Int("news", len(news)))

	if len(news) > 1 {
		first := fmt.Sprintf(subjectPromptTemplate, subjectContextExamples, fullText(news[0].Title, news[0].Content))
		a.warmPromptCache(ctx, "subject", subjectSystem, first)
	}

	var (
		mu   sync.Mutex
		hits []model.SubjectHit
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())

	for _, item := range news {
		g.Go(func() error {
			if strings.TrimSpace(item.Title) == "" && strings.TrimSpace(item.Content) == "" {
				return nil
			}

			prompt := fmt.Sprintf(subjectPromptTemplate, subjectContextExamples, fullText(item.Title, item.Content))
			answer, err := a.ask(ctx, "subject", subjectSystem, prompt)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				a.log.Warn("establishment classification failed",
					zap.String("id", item.ID), zap.Error(err))
				return nil
			}

			verdict, subject, ok := strings.Cut(answer, " | ")
			if !ok || strings.ToUpper(strings.TrimSpace(verdict)) != "SIM" {
				return nil
			}

			mu.Lock()
			hits = append(hits, model.SubjectHit{
				ID:          item.ID,
				Subject:     strings.TrimSpace(subject),
				Methodology: subjectMethodology,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]map[string]string, len(hits))
	for i, h := range hits {
		rows[i] = map[string]string{
			"Id": h.ID, "Assunto": h.Subject, "Metodologia_Aplicada": h.Methodology,
		}
	}
	a.persistPartial("estabelecimentos_delivery",
		[]string{"Id", "Assunto", "Metodologia_Aplicada"}, rows)

	a.log.Info("establishment identification complete", zap.Int("hits", len(hits)))
	return hits, nil
}
