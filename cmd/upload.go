package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pressdesk/brandbatch/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <workbook>",
	Short: "Deliver a workbook to the configured sink",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := upload.New(cfg.Upload).Deliver(cmd.Context(), args[0])

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			return err
		}
		if !status.Success {
			return eris.Errorf("upload failed: %s", status.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
