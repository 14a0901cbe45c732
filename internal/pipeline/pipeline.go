package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pressdesk/brandbatch/internal/analyze"
	"github.com/pressdesk/brandbatch/internal/config"
	"github.com/pressdesk/brandbatch/internal/finalize"
	"github.com/pressdesk/brandbatch/internal/ingest"
	"github.com/pressdesk/brandbatch/internal/lookup"
	"github.com/pressdesk/brandbatch/internal/model"
	"github.com/pressdesk/brandbatch/internal/pivot"
	"github.com/pressdesk/brandbatch/internal/reconcile"
	"github.com/pressdesk/brandbatch/internal/store"
	"github.com/pressdesk/brandbatch/internal/table"
	"github.com/pressdesk/brandbatch/internal/upload"
)

// Output workbook names. The canonical file is overwritten on every run;
// finalize writes a timestamped snapshot beside it.
const (
	canonicalName = "Tabela_atualizacao_em_lote_limpo.xlsx"
	fullPayload   = "retorno_completo.xlsx"
	smallPayload  = "noticias.xlsx"
)

// Pipeline orchestrates a full consolidation run: ingest, the five
// analysis passes, reconciliation, validity filtering, pivot, final
// adjustment and the upload hand-off.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	ingest   *ingest.Client
	analyzer *analyze.Analyzer
	uploader *upload.Uploader
}

// New creates a Pipeline with all dependencies. uploader may be nil,
// in which case the hand-off stage is skipped.
func New(
	cfg *config.Config,
	st store.Store,
	ingestClient *ingest.Client,
	analyzer *analyze.Analyzer,
	uploader *upload.Uploader,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		ingest:   ingestClient,
		analyzer: analyzer,
		uploader: uploader,
	}
}

// brands returns the configured brand list, falling back to the default
// tracked set.
func (p *Pipeline) brands() []string {
	if len(p.cfg.Pipeline.Brands) > 0 {
		return p.cfg.Pipeline.Brands
	}
	return model.DefaultBrands
}

// sourceLabel names the run in the history table.
func sourceLabel(sources []config.SourceEndpoint) string {
	if len(sources) == 1 {
		return sources[0].Name
	}
	return "all"
}

// Run executes the full pipeline against the given source endpoints and
// returns the recorded run with its result attached. The returned run is
// non-nil whenever a run record was created, including on failure.
func (p *Pipeline) Run(ctx context.Context, sources []config.SourceEndpoint) (*model.Run, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	log.Info("starting consolidation run", zap.Int("sources", len(sources)))

	run, err := p.store.CreateRun(ctx, sourceLabel(sources))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("failed to update run status", zap.Error(statusErr))
		}
	}

	result := &model.RunResult{}

	// Stage tracking helper with mutex for the parallel classifier passes.
	var stagesMu sync.Mutex
	trackStage := func(name string, fn func() (*model.StageResult, error)) *model.StageResult {
		stage, stageErr := p.store.CreateStage(ctx, run.ID, name)
		if stageErr != nil {
			log.Warn("failed to create stage", zap.String("stage", name), zap.Error(stageErr))
		}

		start := time.Now()
		stageResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if stageResult == nil {
			stageResult = &model.StageResult{}
		}
		stageResult.Name = name
		stageResult.Duration = duration

		if fnErr != nil {
			stageResult.Status = model.StageStatusFailed
			stageResult.Error = fnErr.Error()
			log.Error("stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else {
			stageResult.Status = model.StageStatusComplete
			log.Info("stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if stage != nil {
			if completeErr := p.store.CompleteStage(ctx, stage.ID, stageResult); completeErr != nil {
				log.Warn("failed to complete stage", zap.String("stage", name), zap.Error(completeErr))
			}
		}
		stagesMu.Lock()
		result.Stages = append(result.Stages, *stageResult)
		if stageResult.Status == model.StageStatusComplete {
			result.LastStage = name
		}
		stagesMu.Unlock()
		return stageResult
	}

	fail := func(runErr error) (*model.Run, error) {
		result.Error = runErr.Error()
		setStatus(model.RunStatusFailed)
		if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
			log.Warn("failed to save run result", zap.Error(saveErr))
		}
		run.Status = model.RunStatusFailed
		run.Result = result
		return run, runErr
	}

	// ===== Ingest =====
	setStatus(model.RunStatusFetching)

	var fetched *ingest.Result
	sr := trackStage("ingest", func() (*model.StageResult, error) {
		res, fetchErr := p.ingest.Fetch(ctx, sources)
		if fetchErr != nil {
			return nil, fetchErr
		}
		fetched = res
		return &model.StageResult{
			Metadata: map[string]any{
				"news_count": len(res.Items),
				"columns":    len(res.Full.Headers()),
			},
		}, nil
	})
	if sr.Status == model.StageStatusFailed {
		return fail(eris.New("pipeline: ingest produced no records"))
	}

	news := fetched.Items
	result.NewsCount = len(news)

	if p.cfg.Paths.PartialsDir != "" {
		if mkErr := os.MkdirAll(p.cfg.Paths.PartialsDir, 0o755); mkErr != nil {
			log.Warn("failed to create partials dir", zap.Error(mkErr))
		} else if persistErr := p.ingest.Persist(fetched,
			filepath.Join(p.cfg.Paths.PartialsDir, fullPayload),
			filepath.Join(p.cfg.Paths.PartialsDir, smallPayload),
		); persistErr != nil {
			log.Warn("failed to persist ingest workbooks", zap.Error(persistErr))
		}
	}

	// ===== Analysis passes =====
	setStatus(model.RunStatusAnalyzing)

	brands := p.brands()
	people := lookup.Load(p.cfg.Paths.SpokespersonFile)

	// Local scans run first: the classifier pass for unregistered
	// spokespersons only covers the items the roster scan left open.
	var spokespersons []model.SpokespersonHit
	trackStage("registered_spokespersons", func() (*model.StageResult, error) {
		spokespersons = p.analyzer.IdentifySpokespersons(news, people)
		return &model.StageResult{
			Metadata: map[string]any{"hits": len(spokespersons)},
		}, nil
	})

	var notes []model.NoteHit
	trackStage("official_notes", func() (*model.StageResult, error) {
		notes = p.analyzer.AnalyzeNotes(news, brands)
		return &model.StageResult{
			Metadata: map[string]any{"hits": len(notes)},
		}, nil
	})

	var pendingIDs []string
	for _, h := range spokespersons {
		if h.Spokesperson == model.SentinelNoSpokesperson {
			pendingIDs = append(pendingIDs, h.ID)
		}
	}

	// The three classifier passes are independent of each other. A failed
	// pass consolidates as an empty input; it does not abort the run.
	var (
		prominence   []model.ProminenceHit
		unregistered []model.UnregisteredHit
		subjects     []model.SubjectHit
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		trackStage("prominence_levels", func() (*model.StageResult, error) {
			concepts := analyze.LoadConcepts(p.cfg.Paths.ConceptsFile)
			hits, promErr := p.analyzer.AnalyzeProminence(gCtx, news, brands, concepts)
			if promErr != nil {
				return nil, promErr
			}
			prominence = hits
			return &model.StageResult{
				Metadata: map[string]any{"hits": len(hits)},
			}, nil
		})
		return nil
	})

	g.Go(func() error {
		trackStage("unregistered_spokespersons", func() (*model.StageResult, error) {
			hits, unregErr := p.analyzer.FindUnregistered(gCtx, pendingIDs, news, brands)
			if unregErr != nil {
				return nil, unregErr
			}
			unregistered = hits
			return &model.StageResult{
				Metadata: map[string]any{
					"pending": len(pendingIDs),
					"hits":    len(hits),
				},
			}, nil
		})
		return nil
	})

	g.Go(func() error {
		trackStage("subjects", func() (*model.StageResult, error) {
			hits, subjErr := p.analyzer.IdentifySubjects(gCtx, news)
			if subjErr != nil {
				return nil, subjErr
			}
			subjects = hits
			return &model.StageResult{
				Metadata: map[string]any{"hits": len(hits)},
			}, nil
		})
		return nil
	})

	_ = g.Wait()

	// ===== Reconciliation =====
	setStatus(model.RunStatusConsolidating)

	var consolidated []model.ConsolidatedRow
	trackStage("reconcile", func() (*model.StageResult, error) {
		consolidated = reconcile.New(model.NewBrandSet(brands)).Reconcile(news, reconcile.Inputs{
			Spokespersons: spokespersons,
			Unregistered:  unregistered,
			Prominence:    prominence,
			Notes:         notes,
			Subjects:      subjects,
		})
		return &model.StageResult{
			Metadata: map[string]any{"rows": len(consolidated)},
		}, nil
	})
	result.ConsolidatedCount = len(consolidated)

	var valid []model.ConsolidatedRow
	trackStage("filter_valid", func() (*model.StageResult, error) {
		valid = reconcile.FilterValid(consolidated)
		return &model.StageResult{
			Metadata: map[string]any{
				"rows_in":  len(consolidated),
				"rows_out": len(valid),
			},
		}, nil
	})

	// ===== Pivot =====
	setStatus(model.RunStatusPivoting)

	var pivoted *table.Table
	sr = trackStage("pivot", func() (*model.StageResult, error) {
		t, pivotErr := pivot.Pivot(valid)
		if pivotErr != nil {
			return nil, pivotErr
		}
		pivoted = t
		return &model.StageResult{
			Metadata: map[string]any{"rows": t.Len()},
		}, nil
	})
	if sr.Status == model.StageStatusFailed {
		return fail(eris.New("pipeline: pivot failed"))
	}

	// ===== Finalize =====
	setStatus(model.RunStatusFinalizing)

	canonical := filepath.Join(p.cfg.Paths.OutputDir, canonicalName)
	sr = trackStage("finalize", func() (*model.StageResult, error) {
		if mkErr := os.MkdirAll(p.cfg.Paths.OutputDir, 0o755); mkErr != nil {
			return nil, eris.Wrap(mkErr, "pipeline: create output dir")
		}
		final := finalize.Adjust(pivoted, news, finalize.Lookups{
			Spokesperson: people,
			Prominence:   lookup.Load(p.cfg.Paths.ProminenceIDFile),
			Effort:       lookup.Load(p.cfg.Paths.EffortIDFile),
			Note:         lookup.Load(p.cfg.Paths.NoteIDFile),
		})
		snapshot, persistErr := finalize.Persist(final, canonical, time.Now())
		if persistErr != nil {
			return nil, persistErr
		}
		result.FinalCount = final.Len()
		result.OutputPath = canonical
		result.SnapshotPath = snapshot
		return &model.StageResult{
			Metadata: map[string]any{"rows": final.Len()},
		}, nil
	})
	if sr.Status == model.StageStatusFailed {
		return fail(eris.New("pipeline: finalize failed"))
	}

	// ===== Upload hand-off =====
	if p.uploader != nil {
		trackStage("upload", func() (*model.StageResult, error) {
			status := p.uploader.Deliver(ctx, canonical)
			if !status.Success {
				return &model.StageResult{
					Metadata: map[string]any{"reason": status.Reason},
				}, eris.New("pipeline: upload hand-off failed")
			}
			return &model.StageResult{
				Metadata: map[string]any{"link": status.Link},
			}, nil
		})
	}

	setStatus(model.RunStatusComplete)

	if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
		log.Warn("failed to save run result", zap.Error(saveErr))
	}

	log.Info("consolidation run complete",
		zap.String("run_id", run.ID),
		zap.Int("news", result.NewsCount),
		zap.Int("consolidated", result.ConsolidatedCount),
		zap.Int("final", result.FinalCount),
	)

	run.Status = model.RunStatusComplete
	run.Result = result
	return run, nil
}
