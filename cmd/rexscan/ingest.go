package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
)

const ingestBatch = 100

func (a *app) newIngestCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Load inventory documents into the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ing, err := a.newIngester()
			if err != nil {
				return err
			}

			var records []resource.Record
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return logging.NewError(logging.ErrorTypeIngest, "failed to read inventory", err,
						map[string]interface{}{"path": path})
				}
				inv, err := ing.Parse(data)
				if err != nil {
					logging.LogError(logging.Logger, err)
					return fmt.Errorf("%s: %w", path, err)
				}
				records = append(records, inv.All()...)
			}

			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			bar := progressbar.NewOptions(len(records),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("ingesting"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetVisibility(!quiet),
				progressbar.OptionClearOnFinish(),
			)
			for start := 0; start < len(records); start += ingestBatch {
				end := min(start+ingestBatch, len(records))
				if _, err := st.PutRecords(ctx, records[start:end]); err != nil {
					return logging.NewError(logging.ErrorTypeStore, "failed to store inventory", err,
						map[string]interface{}{"batch_start": start})
				}
				_ = bar.Add(end - start)
			}
			_ = bar.Finish()

			logging.Logger.Info().Int("records", len(records)).Int("files", len(args)).Msg("Ingest complete")
			fmt.Fprintf(cmd.OutOrStdout(), "Data has been loaded. %d Items Accepted.\n", len(records))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}
