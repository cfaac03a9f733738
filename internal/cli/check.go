package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docket/internal/integrity"
	"github.com/ppiankov/docket/internal/report"
)

var failOnIssues bool

// ErrIntegrityIssues is returned by check --fail-on-issues when the audit
// found problems
var ErrIntegrityIssues = errors.New("integrity issues found")

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit the dataset for completeness and consistency",
	Long: `Check runs the data integrity audit:
1. basic completeness
2. justice coverage
3. vote count consistency
4. unknown justices
5. duplicate justices within a case
6. opinion type distribution
7. date range
8. missing justices per case
9. stored justicesFor drift from majority + concurring

Findings never block other commands; use --fail-on-issues in CI.

Example:
  docket check
  docket check --json > integrity.json
  docket check --fail-on-issues`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&asJSON, "json", false, "print the audit as JSON")
	checkCmd.Flags().BoolVar(&failOnIssues, "fail-on-issues", false, "exit with an error when issues are found")
}

func runCheck(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	checker, err := integrity.NewChecker(cfg.RosterValue(), cfg.Integrity, logger)
	if err != nil {
		return err
	}
	audit, err := checker.Check(snap.Records)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if asJSON {
		err = report.WriteIntegrityJSON(cmd.OutOrStdout(), audit)
	} else {
		err = report.WriteIntegrityText(cmd.OutOrStdout(), snap.Source, audit)
	}
	if err != nil {
		return err
	}

	if failOnIssues && audit.HasIssues() {
		return fmt.Errorf("%w: %d", ErrIntegrityIssues, audit.TotalIssues)
	}
	return nil
}
