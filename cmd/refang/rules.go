package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/refang/pkg/observability"
	"github.com/Sumatoshi-tech/refang/pkg/rules"
)

func rulesCmd(root *rootOptions) *cobra.Command {
	var tablePath string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the configured rewrite rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer a.close()

			cfg, err := a.rulesConfig(nil, tablePath)
			if err != nil {
				return err
			}

			return renderRules(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVar(&tablePath, "table", "", "Argument change table (default: rules.argument_rewrite.table)")

	return cmd
}

func renderRules(out io.Writer, cfg rules.Config) error {
	infos, err := rules.Describe(cfg)
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Rule", "Configuration"})

	for _, info := range infos {
		tbl.AppendRow(table.Row{info.Name, info.Description})
	}

	tbl.Render()

	if cfg.Table == nil || cfg.Table.Len() == 0 {
		return nil
	}

	changes := table.NewWriter()
	changes.SetOutputMirror(out)
	changes.SetStyle(table.StyleLight)
	changes.AppendHeader(table.Row{"Argument change"})

	for _, line := range cfg.Table.Summary() {
		changes.AppendRow(table.Row{line})
	}

	changes.Render()

	return nil
}
