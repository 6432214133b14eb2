package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/audit"
	"github.com/perihelion-labs/ldsi/core/cleaner"
	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

var (
	analyzeFileA  string
	analyzeFileB  string
	analyzeTextA  string
	analyzeTextB  string
	analyzeAlpha  float64
	analyzeBeta   float64
	analyzeGamma  float64
	analyzeClean  bool
	analyzeJSON   bool
	analyzeOutput string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score two local texts",
	Long: `Score reference text A against test text B and print the full
breakdown: compression distance, entropy ratio, graph topology, and the
composite lambda with its verdict.

Examples:
  ldsi analyze --file-a ref.txt --file-b test.txt
  ldsi analyze --text-a "the cat sleeps" --text-b "the feline rests" --json
  ldsi analyze --file-a ref.txt --file-b test.txt --alpha 0.6 --beta 0.2 --gamma 0.2`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFileA, "file-a", "", "Reference text file (A)")
	analyzeCmd.Flags().StringVar(&analyzeFileB, "file-b", "", "Test text file (B)")
	analyzeCmd.Flags().StringVar(&analyzeTextA, "text-a", "", "Reference text literal (A)")
	analyzeCmd.Flags().StringVar(&analyzeTextB, "text-b", "", "Test text literal (B)")
	analyzeCmd.Flags().Float64Var(&analyzeAlpha, "alpha", 0, "Compression weight override")
	analyzeCmd.Flags().Float64Var(&analyzeBeta, "beta", 0, "Entropy weight override")
	analyzeCmd.Flags().Float64Var(&analyzeGamma, "gamma", 0, "Topology weight override")
	analyzeCmd.Flags().BoolVar(&analyzeClean, "clean", false, "Strip stop-words before scoring")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output the result as JSON")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "Append the scored run to this audit file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	textA, err := resolveSampleInput(analyzeFileA, analyzeTextA, "a")
	if err != nil {
		return err
	}
	textB, err := resolveSampleInput(analyzeFileB, analyzeTextB, "b")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cl, err := cleaner.New(cfg.Cleaner)
	if err != nil {
		return err
	}

	if analyzeClean {
		textA = strings.Join(cl.Clean(textA), " ")
		textB = strings.Join(cl.Clean(textB), " ")
	}

	coeffs := cfg.Scoring.Coefficients
	if cmd.Flags().Changed("alpha") {
		coeffs.Alpha = analyzeAlpha
	}
	if cmd.Flags().Changed("beta") {
		coeffs.Beta = analyzeBeta
	}
	if cmd.Flags().Changed("gamma") {
		coeffs.Gamma = analyzeGamma
	}

	engine, err := scoring.NewEngine(
		scoring.WithCoefficients(coeffs),
		scoring.WithThresholds(cfg.Scoring.Thresholds),
		scoring.WithCleaner(cl),
	)
	if err != nil {
		return err
	}

	sampleA, err := scoring.NewSample(textA)
	if err != nil {
		return err
	}
	sampleB, err := scoring.NewSample(textB)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := engine.Score(sampleA, sampleB)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if analyzeJSON {
		if err := writeIndentedJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), &result)
	}

	if analyzeOutput != "" {
		if err := appendLocalRun(analyzeOutput, result, elapsed); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nsaved: %s\n", analyzeOutput)
	}
	return nil
}

// resolveSampleInput enforces exactly one source per sample, file or
// literal.
func resolveSampleInput(file, text, side string) (string, error) {
	switch {
	case file != "" && text != "":
		return "", errors.InvalidInputf("--file-%s and --text-%s are mutually exclusive", side, side)
	case file != "":
		data, err := loadTextOrFile(file)
		if err != nil {
			return "", err
		}
		return data, nil
	case text != "":
		return text, nil
	default:
		return "", errors.InvalidInputf("sample %s needs --file-%s or --text-%s", side, side, side)
	}
}

// appendLocalRun records a local analysis in a hash-chained audit file.
func appendLocalRun(path string, result scoring.Result, elapsed time.Duration) error {
	log, err := audit.NewLog(audit.LogConfig{Path: path})
	if err != nil {
		return err
	}
	defer log.Close()

	return log.Append(&audit.Record{
		Model:      "local-analysis",
		DurationMS: elapsed.Milliseconds(),
		Result:     result,
	})
}
