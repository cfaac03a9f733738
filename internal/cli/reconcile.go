package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/docket/internal/dataset"
)

var (
	reconcileOut    string
	reconcileDryRun bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rewrite stored justicesFor as majority + concurring",
	Long: `Reconcile recomputes the justicesFor field of every case with a majority
bloc as the union of majority and concurring justices, and writes the
dataset back. Records already consistent are left unchanged, and every
other key of a record is written back as it was read.

The dataset must be a local file.

Example:
  docket reconcile --dry-run
  docket reconcile --dataset data/scData.json --out data/scData.reconciled.json`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&reconcileOut, "out", "o", "", "output path (default: overwrite the dataset)")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report changes without writing")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	source := cfg.Dataset.Path
	if dataset.IsRemote(source) {
		return fmt.Errorf("cannot reconcile remote dataset %s", source)
	}

	data, err := dataset.ReadFile(source, cfg.Dataset.MaxBodyBytes)
	if err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}
	rewritten, res, err := dataset.ReconcileDocument(data)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", source, err)
	}
	logger.Debug("dataset reconciled",
		zap.String("source", source),
		zap.Int("records", res.Records),
		zap.Int("changed", res.Changed))

	out := cmd.OutOrStdout()

	if reconcileDryRun {
		fmt.Fprintf(out, "%d of %d records would change\n", res.Changed, res.Records)
		return nil
	}

	target := reconcileOut
	if target == "" {
		target = source
	}
	if res.Changed == 0 && target == source {
		fmt.Fprintf(out, "✓ %s already reconciled (%d records)\n", source, res.Records)
		return nil
	}

	if err := dataset.WriteFile(target, rewritten); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Reconciled %d of %d records into %s\n", res.Changed, res.Records, target)
	return nil
}
