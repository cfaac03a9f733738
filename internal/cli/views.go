package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docket/internal/aggregate"
	"github.com/ppiankov/docket/internal/agreement"
	"github.com/ppiankov/docket/internal/report"
)

var (
	asJSON     bool
	reportJSON string
	reportMD   string
)

// overviewCmd represents the overview command
var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the term overview",
	Long: `Overview prints the term-level numbers of the dashboard:
- total cases
- share of unanimous decisions
- most frequent vote split

A full term report (overview, justices, agreement, splits, decision types)
can be written as JSON and Markdown.

Example:
  docket overview
  docket overview --dataset data/scData.json --report-json term.json --report-md term.md`,
	Args: cobra.NoArgs,
	RunE: runOverview,
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show majority, concurring and dissent counts per justice",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		stats := aggregate.NewAggregator(cfg.RosterValue()).JusticeStats(snap.Records)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.JusticeTable(stats))
		return nil
	},
}

// matrixCmd represents the matrix command
var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Show the pairwise agreement matrix",
	Long: `Matrix prints how often each pair of justices sat together in the
majority or together in dissent, over the cases recording both blocs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		m := agreement.Compute(snap.Records, cfg.RosterValue())
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), m)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.MatrixTable(m))
		return nil
	},
}

// splitsCmd represents the splits command
var splitsCmd = &cobra.Command{
	Use:   "splits",
	Short: "Show the vote-split histogram",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		h := aggregate.NewAggregator(cfg.RosterValue()).VoteSplits(snap.Records)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), h)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.SplitTable(h))
		return nil
	},
}

// typesCmd represents the types command
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Show the decision-type distribution",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		types := aggregate.NewAggregator(cfg.RosterValue()).DecisionTypes(snap.Records)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), types)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.DecisionTypeTable(types))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{overviewCmd, statsCmd, matrixCmd, splitsCmd, typesCmd} {
		c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
		rootCmd.AddCommand(c)
	}

	overviewCmd.Flags().StringVar(&reportJSON, "report-json", "", "write the full term report as JSON to this path")
	overviewCmd.Flags().StringVar(&reportMD, "report-md", "", "write the full term report as Markdown to this path")
}

func runOverview(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	tr := report.Build(snap, cfg.RosterValue())
	out := cmd.OutOrStdout()

	if asJSON {
		if err := writeJSON(out, tr.Overview); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, report.OverviewText(tr.Overview))
		if snap.Stats.Malformed > 0 {
			fmt.Fprintf(out, "  (%d malformed records skipped)\n", snap.Stats.Malformed)
		}
	}

	renderer := report.NewRenderer(cfg.Output.IncludeFooter)
	if reportJSON != "" {
		if err := renderer.RenderJSON(tr, reportJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", reportJSON)
	}
	if reportMD != "" {
		if err := renderer.RenderMarkdown(tr, reportMD); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", reportMD)
	}
	return nil
}
