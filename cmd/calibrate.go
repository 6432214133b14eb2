package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/calibrate"
)

var (
	calibrateDataset  string
	calibrateWorkers  int
	calibrateTopology string
	calibrateJSON     bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Grid-search the composite weights against a labeled set",
	Long: `Sweep the (alpha, beta, gamma) lattice and report the weights that
minimize squared error against expected lambda labels. Without --dataset
the built-in golden set is used.

Example dataset (YAML):
  cases:
    - name: identical
      text_a: "Le chat dort."
      text_b: "Le chat dort."
      expected_lambda: 0.1
      expected_verdict: ZOMBIE`,
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().StringVarP(&calibrateDataset, "dataset", "d", "", "Training set YAML file (default: built-in golden set)")
	calibrateCmd.Flags().IntVarP(&calibrateWorkers, "workers", "w", 0, "Parallel workers (default: all CPUs)")
	calibrateCmd.Flags().StringVar(&calibrateTopology, "topology", "", "Topology strategy version to fit against")
	calibrateCmd.Flags().BoolVar(&calibrateJSON, "json", false, "Output the fit as JSON")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dataset := calibrateDataset
	if dataset == "" {
		dataset = cfg.Calibration.Dataset
	}

	cases := calibrate.GoldenCases()
	if dataset != "" {
		cases, err = calibrate.LoadCases(dataset)
		if err != nil {
			return err
		}
	}

	workers := calibrateWorkers
	if workers == 0 {
		workers = cfg.Calibration.Workers
	}

	fit, err := calibrate.Run(cmd.Context(), cases, calibrate.Options{
		Workers:         workers,
		Thresholds:      cfg.Scoring.Thresholds,
		TopologyVersion: calibrateTopology,
	})
	if err != nil {
		return err
	}

	if calibrateJSON {
		return writeIndentedJSON(cmd.OutOrStdout(), fit)
	}

	printFit(cmd, fit, len(cases))
	return nil
}

func printFit(cmd *cobra.Command, fit *calibrate.Result, caseCount int) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, paint(colorCyan, "\n[CALIBRATE] coefficient grid search"))
	fmt.Fprintf(w, "  cases:      %d\n", caseCount)
	fmt.Fprintf(w, "  evaluated:  %d combinations in %v\n", fit.Evaluated, fit.Elapsed.Round(time.Millisecond))

	fmt.Fprintf(w, "\n  best weights: alpha=%.2f beta=%.2f gamma=%.2f (%s)\n",
		fit.Best.Alpha, fit.Best.Beta, fit.Best.Gamma, fit.Best.TopologyVersion)
	fmt.Fprintf(w, "  RMSE:          %.6f\n", fit.RMSE)
	fmt.Fprintf(w, "  baseline RMSE: %.6f (library defaults)\n", fit.BaselineRMSE)
	fmt.Fprintf(w, "  residual std:  %.6f\n", fit.ResidualStddev)
	fmt.Fprintf(w, "  verdict match: %.0f%%\n", fit.VerdictAgreement*100)

	fmt.Fprintln(w, "\n  case                  expected   actual     residual  verdict")
	fmt.Fprintln(w, "  "+paint(colorGray, "------------------------------------------------------------"))
	for _, r := range fit.Residuals {
		marker := paint(colorGreen, "ok")
		if r.ActualVerdict != r.ExpectedVerdict {
			marker = paint(colorRed, string(r.ActualVerdict))
		}
		fmt.Fprintf(w, "  %-20s  %8.4f  %8.4f  %+8.4f  %s\n",
			truncateName(r.Name, 20), r.Expected, r.Actual, r.Residual, marker)
	}
}

func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max-3] + "..."
}
