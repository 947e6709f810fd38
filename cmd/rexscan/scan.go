package main

import (
	"github.com/spf13/cobra"

	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/report"
	"rgehrsitz/rexscan/pkg/resource"
)

func (a *app) newScanCmd() *cobra.Command {
	var (
		category string
		minScore int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Score the stored resources of one category",
		Example: `  rexscan scan --type s3 --min-score 2
  rexscan scan --type rds --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resource.ParseCategory(category)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(a.cfg.ReportFormat)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cat, err := a.loadCatalog(ctx, st)
			if err != nil {
				logging.LogError(logging.Logger, err)
				return err
			}
			res, err := a.newEngine(cat).Scan(ctx, st, c, minScore)
			if err != nil {
				logging.LogError(logging.Logger, err)
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, res)
		},
	}
	cmd.Flags().StringVarP(&category, "type", "t", "", "resource category (ec2, s3, rds)")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "minimum number of distinct violations to report")
	cmd.Flags().StringP("format", "f", "text", "report format (json, text, csv)")
	cobra.CheckErr(cmd.MarkFlagRequired("type"))
	cobra.CheckErr(a.v.BindPFlag("report.format", cmd.Flags().Lookup("format")))
	return cmd
}
