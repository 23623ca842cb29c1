package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/io"
)

var familiesCmd = &cobra.Command{
	Use:   "families",
	Short: "Lists the configured source families.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Name", "Label", "Kind", "Fields", "Output", "Spans"})
		for _, f := range cfg.Families {
			spans := f.SpansFile
			if len(f.Spans) > 0 {
				spans = fmt.Sprintf("%d inline", len(f.Spans))
			} else if spans == "" {
				spans = io.AllYearsLabel
			}
			t.AppendRow(table.Row{f.Name, f.Label, f.Kind, strings.Join(f.Fields, ", "), f.Output, spans})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

var spansFamily string

var spansCmd = &cobra.Command{
	Use:   "spans --family <name>",
	Short: "Prints the spans a family run would harvest, in order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		family, ok := cfg.Family(spansFamily)
		if !ok {
			return fmt.Errorf("unknown family %q", spansFamily)
		}
		spans, err := io.NewSpanReader(&family).GetSpans()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"#", "Label", "Year", "URL"})
		for i, span := range spans {
			url := ""
			if family.Kind == config.KindTable {
				url = family.BaseURL + span.Fragment
			}
			t.AppendRow(table.Row{i + 1, span.Label, span.Year(), url})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func init() {
	spansCmd.Flags().StringVarP(&spansFamily, "family", "f", "", "Family whose spans to list")
	_ = spansCmd.MarkFlagRequired("family")
	rootCmd.AddCommand(familiesCmd, spansCmd)
}
