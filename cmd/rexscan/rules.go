package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/compiler"
)

func (a *app) newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage rule packs",
	}
	cmd.AddCommand(a.newRulesCheckCmd(), a.newRulesListCmd(), a.newRulesImportCmd())
	return cmd
}

func (a *app) newRulesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Compile a rule pack without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := catalog.ReadDefinitions(args[0])
			if err != nil {
				return readRulesError(args[0], err)
			}
			cat, err := catalog.Load(defs)
			if err != nil {
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "%s: %v\n", args[0], err)
				return loadRulesError(args[0], err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", args[0], cat.Len())
			return nil
		},
	}
}

func (a *app) newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the rules a scan would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cat, err := a.loadCatalog(ctx, st)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tTAG\tWEIGHT\tCONDITION")
			for _, r := range cat.Rules() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", r.ID, r.Category, r.ViolationTag, r.Weight, compiler.String(r.Condition))
			}
			return tw.Flush()
		},
	}
}

func (a *app) newRulesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a rule pack and store it as the active rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := catalog.ReadDefinitions(args[0])
			if err != nil {
				return readRulesError(args[0], err)
			}
			cat, err := catalog.Load(defs)
			if err != nil {
				return loadRulesError(args[0], err)
			}

			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.PutRules(ctx, defs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d rules\n", cat.Len())
			return nil
		},
	}
}
