package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/postprocess"
)

var (
	ppLookup  string
	ppInplace bool
)

var postprocessCmd = &cobra.Command{
	Use:   "postprocess <workbook>",
	Short: "Fill spokesperson ID columns of an existing workbook",
	Long:  "Resolves every spokesperson column of the given workbook against the reference table and writes the IDs beside it, plus a report of the names left unresolved.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lookupPath := ppLookup
		if lookupPath == "" {
			lookupPath = cfg.Paths.SpokespersonFile
		}

		res, err := postprocess.Process(args[0], lookupPath, ppInplace, time.Now())
		if err != nil {
			return eris.Wrap(err, "postprocess")
		}

		zap.L().Info("postprocess complete",
			zap.String("output", res.OutputPath),
			zap.String("report", res.ReportPath),
			zap.Int("resolved", res.Resolved),
			zap.Int("not_found", res.NotFound),
		)
		return nil
	},
}

func init() {
	postprocessCmd.Flags().StringVar(&ppLookup, "lookup", "", "spokesperson reference workbook (defaults to the configured one)")
	postprocessCmd.Flags().BoolVar(&ppInplace, "inplace", false, "overwrite the input workbook instead of writing a sibling")
	rootCmd.AddCommand(postprocessCmd)
}
