package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docket/internal/query"
	"github.com/ppiankov/docket/internal/report"
)

var (
	queryJustices         []string
	queryMode             string
	queryExcludeUnanimous bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find cases by how selected justices voted",
	Long: `Query lists the cases in which every selected justice voted the same way:
- all:      all together in the majority, or all together in dissent
- majority: all voted for the outcome (majority or concurring)
- dissent:  all dissented

Example:
  docket query --justice Thomas --justice Alito
  docket query -j Kagan -j Sotomayor --mode dissent
  docket query -j Roberts --mode majority --exclude-unanimous`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringSliceVarP(&queryJustices, "justice", "j", nil, "justice to select (repeatable)")
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", string(query.ModeAll), "vote mode: all, majority or dissent")
	queryCmd.Flags().BoolVar(&queryExcludeUnanimous, "exclude-unanimous", false, "skip unanimous cases (ignored in dissent mode)")
	queryCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a list")
}

type queryOutput struct {
	Params  query.Params `json:"params"`
	Summary string       `json:"summary"`
	Matched int          `json:"matched"`
	Total   int          `json:"total"`
	Percent float64      `json:"percent"`
	Cases   []string     `json:"cases"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	mode, err := query.ParseMode(queryMode)
	if err != nil {
		return err
	}

	roster := cfg.RosterValue()
	for _, name := range queryJustices {
		if !roster.Contains(name) {
			return fmt.Errorf("unknown justice %q (roster: %v)", name, roster.Names())
		}
	}

	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	p := query.Params{Justices: queryJustices, Mode: mode, ExcludeUnanimous: queryExcludeUnanimous}
	res := query.NewEngine(snap.Records).Run(p)

	if asJSON {
		titles := make([]string, 0, len(res.Cases))
		for _, c := range res.Cases {
			titles = append(titles, c.CaseTitle)
		}
		return writeJSON(cmd.OutOrStdout(), queryOutput{
			Params:  p,
			Summary: query.Summary(p, res),
			Matched: res.Matched,
			Total:   res.Total,
			Percent: res.Percent,
			Cases:   titles,
		})
	}

	fmt.Fprint(cmd.OutOrStdout(), report.CaseList(p, res))
	return nil
}
