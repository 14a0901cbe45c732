package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/analyze"
	"github.com/pressdesk/brandbatch/internal/config"
	"github.com/pressdesk/brandbatch/internal/ingest"
	"github.com/pressdesk/brandbatch/internal/pipeline"
	"github.com/pressdesk/brandbatch/internal/upload"
	anthropicpkg "github.com/pressdesk/brandbatch/pkg/anthropic"
)

var (
	runSource   string
	runNoUpload bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full consolidation pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sources, err := config.LoadSources(cfg.Pipeline.SourcesFile)
		if err != nil {
			return err
		}
		sources, err = filterSources(sources, runSource)
		if err != nil {
			return err
		}

		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		analyzer := analyze.New(anthropicClient, cfg.Anthropic, cfg.Paths.PartialsDir)

		var uploader *upload.Uploader
		if !runNoUpload && (cfg.Upload.FTPAddr != "" || cfg.Upload.WebhookURL != "") {
			uploader = upload.New(cfg.Upload)
		}

		p := pipeline.New(cfg, st, ingest.New(), analyzer, uploader)

		run, err := p.Run(ctx, sources)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("consolidation complete",
			zap.String("run_id", run.ID),
			zap.Int("news", run.Result.NewsCount),
			zap.Int("final", run.Result.FinalCount),
			zap.String("output", run.Result.OutputPath),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Result)
	},
}

// filterSources narrows the endpoint list to one named source. An empty
// name keeps every endpoint.
func filterSources(sources []config.SourceEndpoint, name string) ([]config.SourceEndpoint, error) {
	if name == "" {
		return sources, nil
	}
	for _, src := range sources {
		if src.Name == name {
			return []config.SourceEndpoint{src}, nil
		}
	}
	return nil, eris.Errorf("unknown source %q", name)
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "run a single named source endpoint")
	runCmd.Flags().BoolVar(&runNoUpload, "no-upload", false, "skip the upload hand-off")
	rootCmd.AddCommand(runCmd)
}
